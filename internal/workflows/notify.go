package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// NotifyInput is the input for the plot notification workflow.
type NotifyInput struct {
	PlotID       string
	CentroidLat  float64
	CentroidLon  float64
	City         string
	AreaSqFeet   float64
	RadiusMeters float64
}

// PlotNotifyWorkflow fans a freshly submitted plot out to nearby contractors.
// Each contractor gets a ledger row and a push notification; if the push
// fails, the ledger row is removed (saga compensation) so the contractor can
// be retried on a later submission.
func PlotNotifyWorkflow(ctx workflow.Context, input NotifyInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting plot notification workflow", "plotID", input.PlotID)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	radius := input.RadiusMeters
	if radius <= 0 {
		radius = 10000
	}

	// Step 1: Find contractors near the plot
	var contractorIDs []string
	err := workflow.ExecuteActivity(ctx, "FindNearbyContractors",
		input.CentroidLat, input.CentroidLon, radius).Get(ctx, &contractorIDs)
	if err != nil {
		return err
	}
	if len(contractorIDs) == 0 {
		logger.Info("No contractors near plot", "plotID", input.PlotID)
		return nil
	}

	// Step 2: Record + notify each contractor. One failed contractor does not
	// abort the rest.
	var failed int
	for _, contractorID := range contractorIDs {
		err := workflow.ExecuteActivity(ctx, "RecordNotification", contractorID, input.PlotID).Get(ctx, nil)
		if err != nil {
			failed++
			continue
		}

		err = workflow.ExecuteActivity(ctx, "SendContractorPush",
			contractorID, input.PlotID, input.City, input.AreaSqFeet).Get(ctx, nil)
		if err != nil {
			logger.Warn("push failed, rolling back ledger row",
				"contractorID", contractorID, "error", err)
			// Compensate: remove the ledger row
			_ = workflow.ExecuteActivity(ctx, "DeleteNotification", contractorID, input.PlotID).Get(ctx, nil)
			failed++
		}
	}

	logger.Info("Plot notification workflow finished",
		"plotID", input.PlotID, "contractors", len(contractorIDs), "failed", failed)
	return nil
}
