package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"trello-project/microservices/boards-service/logging"

	"github.com/sony/gobreaker"
)

// NotificationService delivers board events to the notifications service over
// HTTP, behind a circuit breaker so a dead notifications service cannot stall
// board mutations.
type NotificationService struct {
	BaseURL    string
	HTTPClient *http.Client
	Breaker    *gobreaker.CircuitBreaker
}

func NewNotificationService(baseURL string, httpClient *http.Client) *NotificationService {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "NotificationsServiceCB",
		MaxRequests: 1,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})

	return &NotificationService{
		BaseURL:    baseURL,
		HTTPClient: httpClient,
		Breaker:    breaker,
	}
}

type notificationPayload struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

// NotifyMemberRemoved tells the notifications service that a member was
// removed from a board. Delivery is best effort; the caller only logs
// failures.
func (s *NotificationService) NotifyMemberRemoved(ctx context.Context, boardID, memberID string) error {
	if s.BaseURL == "" {
		return nil
	}

	payload := notificationPayload{
		UserID:  memberID,
		Message: fmt.Sprintf("You have been removed from board %s", boardID),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	_, err = s.Breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/notifications", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.HTTPClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("notifications service returned status %d", resp.StatusCode)
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}
