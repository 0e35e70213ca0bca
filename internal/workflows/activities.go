package workflows

import (
	"context"
	"fmt"
	"log"

	"github.com/basobaas/plotline/internal/core/ports"
)

// NotifyActivities holds the activity implementations for the plot
// notification workflow.
type NotifyActivities struct {
	Contractors ports.ContractorRepository
	Notifier    ports.NotificationService
}

// FindNearbyContractors returns the IDs of active contractors near a point.
func (a *NotifyActivities) FindNearbyContractors(ctx context.Context, lat, lon, radiusMeters float64) ([]string, error) {
	contractors, err := a.Contractors.FindNearby(ctx, lat, lon, radiusMeters, 10)
	if err != nil {
		return nil, fmt.Errorf("find nearby contractors: %w", err)
	}
	ids := make([]string, 0, len(contractors))
	for _, c := range contractors {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// RecordNotification writes the contractor/plot ledger row.
func (a *NotifyActivities) RecordNotification(ctx context.Context, contractorID, plotID string) error {
	if err := a.Contractors.RecordNotification(ctx, contractorID, plotID); err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	return nil
}

// SendContractorPush sends a push notification to a contractor about a new plot.
func (a *NotifyActivities) SendContractorPush(ctx context.Context, contractorID, plotID, city string, areaSqFeet float64) error {
	if a.Notifier == nil {
		log.Printf("PUSH (no notifier) → contractor=%s plot=%s", contractorID, plotID)
		return nil
	}
	title := "New plot in your area"
	where := city
	if where == "" {
		where = "your area"
	}
	body := fmt.Sprintf("A %.0f sq ft plot was just mapped in %s. Open the app to see it.", areaSqFeet, where)
	return a.Notifier.SendPush(ctx, contractorID, title, body)
}

// DeleteNotification removes a ledger row (saga compensation / rollback).
func (a *NotifyActivities) DeleteNotification(ctx context.Context, contractorID, plotID string) error {
	if err := a.Contractors.DeleteNotification(ctx, contractorID, plotID); err != nil {
		return fmt.Errorf("delete notification %s/%s: %w", contractorID, plotID, err)
	}
	log.Printf("Notification %s/%s deleted (saga compensation)", contractorID, plotID)
	return nil
}
