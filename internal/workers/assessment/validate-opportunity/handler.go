// internal/workers/assessment/validate-opportunity/handler.go
package validateopportunity

import (
	"context"
	"encoding/json"
	"fmt"

	"dealflow-workers/internal/assessment"
	stderrors "dealflow-workers/internal/common/errors"
	"dealflow-workers/internal/common/logger"
	"dealflow-workers/internal/common/metrics"
	"dealflow-workers/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "validate-opportunity"
)

// opportunitySchema covers shape and range checks. Cross-field rules
// (dwellings vs lots, pre-sales consistency) are applied after decoding.
const opportunitySchema = `{
  "type": "object",
  "required": ["name", "landPurchasePrice", "constructionPerUnit", "avgSalePrice"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "address": {"type": "string"},
    "city": {"type": "string"},
    "state": {"type": "string"},
    "country": {"type": "string"},
    "propertySize": {"type": "number", "minimum": 0},
    "sizeUnit": {"type": "string", "enum": ["sqm", "acres", "sqft"]},
    "landStage": {"type": "string", "enum": ["da_approved", "needs_rezoning", "vacant", "redevelopment"]},
    "currentZoning": {"type": "string"},
    "numLots": {"type": "integer", "minimum": 0},
    "numDwellings": {"type": "integer", "minimum": 0},
    "existingStructures": {"type": "string"},
    "landPurchasePrice": {"type": "number", "minimum": 0},
    "infrastructureCosts": {"type": "number", "minimum": 0},
    "constructionPerUnit": {"type": "number", "minimum": 0},
    "avgSalePrice": {"type": "number", "minimum": 0},
    "contingencyPercent": {"type": "number", "minimum": 0, "maximum": 100},
    "timeframeMonths": {"type": "integer", "minimum": 0},
    "hasProofOfOwnership": {"type": "boolean"},
    "hasActiveLegalDisputes": {"type": "boolean"},
    "hasPreviousLegalDisputes": {"type": "boolean"},
    "hasDAApproval": {"type": "boolean"},
    "hasVendorFinance": {"type": "boolean"},
    "hasFixedPriceBuild": {"type": "boolean"},
    "hasExperiencedPM": {"type": "boolean"},
    "hasClearTitle": {"type": "boolean"},
    "inGrowthCorridor": {"type": "boolean"},
    "hasPreSales": {"type": "boolean"},
    "preSalesPercent": {"type": "number", "minimum": 0, "maximum": 100}
  }
}`

type Handler struct {
	config    *Config
	validator *validation.Validator
	errs      *stderrors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, log logger.Logger) (*Handler, error) {
	validator, err := validation.NewValidator(opportunitySchema)
	if err != nil {
		return nil, fmt.Errorf("compile opportunity schema: %w", err)
	}
	return &Handler{
		config:    config,
		validator: validator,
		errs:      stderrors.NewErrorHandler(log),
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stderrors.ErrCodeParseError)).Inc()
		h.errs.HandleJobError(context.Background(), client, job, stderrors.NewParseError(err))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, "OPPORTUNITY_VALIDATION_FAILED").Inc()
		h.errs.HandleJobError(ctx, client, job, stderrors.NewOpportunityValidationFailedError(err.Error()))
		return nil
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.completeJob(client, job, output)
	return nil
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	if input.Opportunity == nil {
		return nil, fmt.Errorf("opportunity payload missing")
	}

	result, err := h.validator.Validate(input.Opportunity)
	if err != nil {
		return nil, fmt.Errorf("validate opportunity: %w", err)
	}

	fieldErrors := make([]FieldError, 0, len(result.Errors))
	for _, verr := range result.Errors {
		fieldErrors = append(fieldErrors, FieldError{
			Field:   verr.Field,
			Message: verr.Message,
			Code:    verr.Code,
		})
	}

	var opp assessment.OpportunityInput
	if result.Valid {
		raw, err := json.Marshal(input.Opportunity)
		if err != nil {
			return nil, fmt.Errorf("re-encode opportunity: %w", err)
		}
		if err := json.Unmarshal(raw, &opp); err != nil {
			return nil, fmt.Errorf("decode opportunity: %w", err)
		}
		fieldErrors = append(fieldErrors, h.checkCrossFieldRules(&opp)...)
	}

	if len(fieldErrors) > 0 {
		h.logger.Warn("opportunity failed validation", map[string]interface{}{
			"errorCount": len(fieldErrors),
			"firstError": fieldErrors[0].Message,
		})
		return &Output{Valid: false, Errors: fieldErrors}, nil
	}

	h.logger.Info("opportunity validated", map[string]interface{}{
		"name":  opp.Name,
		"units": opp.Units(),
	})

	return &Output{Valid: true, Opportunity: &opp}, nil
}

// checkCrossFieldRules applies rules the JSON schema cannot express.
func (h *Handler) checkCrossFieldRules(opp *assessment.OpportunityInput) []FieldError {
	var errs []FieldError

	if opp.Units() == 0 {
		errs = append(errs, FieldError{
			Field:   "numLots",
			Message: "either numLots or numDwellings must be greater than zero",
			Code:    "NO_UNITS",
		})
	}

	if opp.PreSalesPercent > 0 && !opp.HasPreSales {
		errs = append(errs, FieldError{
			Field:   "preSalesPercent",
			Message: "preSalesPercent set but hasPreSales is false",
			Code:    "INCONSISTENT_PRESALES",
		})
	}

	if opp.LandStage == assessment.LandStageDAApproved && !opp.HasDAApproval {
		errs = append(errs, FieldError{
			Field:   "landStage",
			Message: "landStage da_approved requires hasDAApproval",
			Code:    "INCONSISTENT_DA_STATUS",
		})
	}

	return errs
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
