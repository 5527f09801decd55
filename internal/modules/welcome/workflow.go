package welcome

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chanatinart02/next-stock-tracker-app/internal/modules/ai"
	"github.com/chanatinart02/next-stock-tracker-app/internal/workflow"
	"github.com/rs/zerolog"
)

// WorkflowID identifies the signup welcome workflow.
const WorkflowID = "send-sign-up-email"

// TriggerEvent dispatches the workflow when a user signs up.
const TriggerEvent = "user.created"

// fallbackIntro is used when intro generation fails or returns
// nothing. Generation problems never block the welcome email.
const fallbackIntro = "Thanks for joining Signalist! We're excited to have you on board."

// SignupPayload is the event payload emitted on signup.
type SignupPayload struct {
	Email             string `json:"email"`
	Name              string `json:"name"`
	Country           string `json:"country"`
	InvestmentGoals   string `json:"investmentGoals"`
	RiskTolerance     string `json:"riskTolerance"`
	PreferredIndustry string `json:"preferredIndustry"`
}

// TextGenerator produces text from a prompt.
type TextGenerator interface {
	Infer(ctx context.Context, prompt, idempotencyKey string) (string, error)
}

// Mailer sends the welcome email.
type Mailer interface {
	SendWelcome(to, name, intro string) error
}

// Workflow sends a personalized welcome email to each new user.
type Workflow struct {
	generator TextGenerator
	mailer    Mailer
	log       zerolog.Logger
}

// New creates the signup welcome workflow.
func New(generator TextGenerator, mailer Mailer, log zerolog.Logger) *Workflow {
	return &Workflow{
		generator: generator,
		mailer:    mailer,
		log:       log.With().Str("workflow", WorkflowID).Logger(),
	}
}

// Definition returns the engine registration for this workflow.
func (w *Workflow) Definition() workflow.Definition {
	return workflow.Definition{
		ID:      WorkflowID,
		Event:   TriggerEvent,
		Handler: w.run,
	}
}

func (w *Workflow) run(ctx context.Context, wc *workflow.Context) (workflow.Output, error) {
	var payload SignupPayload
	if err := json.Unmarshal(wc.Trigger.Payload, &payload); err != nil {
		return workflow.Output{}, fmt.Errorf("invalid signup payload: %w", err)
	}
	if payload.Email == "" {
		return workflow.Output{}, fmt.Errorf("signup payload has no email")
	}

	intro, err := workflow.Step(ctx, wc, "generate-welcome-intro", func(ctx context.Context) (string, error) {
		return w.generateIntro(ctx, wc.RunID, payload), nil
	})
	if err != nil {
		return workflow.Output{}, err
	}

	_, err = workflow.Step(ctx, wc, "send-welcome-email", func(ctx context.Context) (bool, error) {
		if err := w.mailer.SendWelcome(payload.Email, payload.Name, intro); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return workflow.Output{}, err
	}

	return workflow.Output{Success: true, Message: "Welcome email sent successfully"}, nil
}

// generateIntro asks the model for a personalized paragraph, falling
// back to the stock greeting on any failure.
func (w *Workflow) generateIntro(ctx context.Context, runID string, payload SignupPayload) string {
	prompt := ai.WelcomeIntroPrompt(ai.UserProfile{
		Country:           payload.Country,
		InvestmentGoals:   payload.InvestmentGoals,
		RiskTolerance:     payload.RiskTolerance,
		PreferredIndustry: payload.PreferredIndustry,
	})

	intro, err := w.generator.Infer(ctx, prompt, runID+":generate-welcome-intro")
	if err != nil {
		w.log.Warn().Err(err).Str("email", payload.Email).Msg("Intro generation failed, using fallback")
		return fallbackIntro
	}
	if intro == "" {
		return fallbackIntro
	}

	return intro
}
