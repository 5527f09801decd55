package welcome

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chanatinart02/next-stock-tracker-app/internal/workflow"
)

type stubGenerator struct {
	response string
	err      error
	prompts  []string
	keys     []string
}

func (g *stubGenerator) Infer(ctx context.Context, prompt, idempotencyKey string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	g.keys = append(g.keys, idempotencyKey)
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

type stubMailer struct {
	err   error
	to    string
	name  string
	intro string
	sends int
}

func (m *stubMailer) SendWelcome(to, name, intro string) error {
	m.sends++
	if m.err != nil {
		return m.err
	}
	m.to = to
	m.name = name
	m.intro = intro
	return nil
}

func runWorkflow(t *testing.T, wf *Workflow, payload SignupPayload) (workflow.Output, error) {
	t.Helper()

	trigger, err := workflow.NewEventTrigger(TriggerEvent, payload)
	require.NoError(t, err)

	exec := workflow.NewExecutor(
		workflow.NewMemoryStepStore(),
		workflow.RetryPolicy{MaxAttempts: 2, Backoff: time.Millisecond, Multiplier: 1},
		zerolog.Nop(),
	)
	wc := workflow.NewContext("run-1", trigger, exec, zerolog.Nop())

	return wf.Definition().Handler(context.Background(), wc)
}

func TestDefinitionTriggers(t *testing.T) {
	wf := New(&stubGenerator{}, &stubMailer{}, zerolog.Nop())
	def := wf.Definition()

	assert.Equal(t, "send-sign-up-email", def.ID)
	assert.Equal(t, "user.created", def.Event)
	assert.Empty(t, def.Cron)
}

func TestSendsPersonalizedWelcome(t *testing.T) {
	generator := &stubGenerator{response: "Welcome to your investing journey in Germany!"}
	mail := &stubMailer{}
	wf := New(generator, mail, zerolog.Nop())

	out, err := runWorkflow(t, wf, SignupPayload{
		Email:           "ada@example.com",
		Name:            "Ada",
		Country:         "Germany",
		InvestmentGoals: "Growth",
	})
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.Equal(t, "Welcome email sent successfully", out.Message)

	assert.Equal(t, "ada@example.com", mail.to)
	assert.Equal(t, "Ada", mail.name)
	assert.Equal(t, generator.response, mail.intro)

	require.Len(t, generator.prompts, 1)
	assert.Contains(t, generator.prompts[0], "Germany")
	assert.Contains(t, generator.prompts[0], "Growth")
	assert.Equal(t, "run-1:generate-welcome-intro", generator.keys[0])
}

func TestGenerationFailureFallsBack(t *testing.T) {
	generator := &stubGenerator{err: errors.New("model unavailable")}
	mail := &stubMailer{}
	wf := New(generator, mail, zerolog.Nop())

	out, err := runWorkflow(t, wf, SignupPayload{Email: "ada@example.com", Name: "Ada"})
	require.NoError(t, err, "generation problems must not fail the run")

	assert.True(t, out.Success)
	assert.Equal(t, "Thanks for joining Signalist! We're excited to have you on board.", mail.intro)
}

func TestEmptyGenerationFallsBack(t *testing.T) {
	generator := &stubGenerator{response: ""}
	mail := &stubMailer{}
	wf := New(generator, mail, zerolog.Nop())

	_, err := runWorkflow(t, wf, SignupPayload{Email: "ada@example.com", Name: "Ada"})
	require.NoError(t, err)

	assert.Equal(t, "Thanks for joining Signalist! We're excited to have you on board.", mail.intro)
}

func TestSendFailureFailsRun(t *testing.T) {
	mail := &stubMailer{err: errors.New("smtp refused")}
	wf := New(&stubGenerator{response: "hi"}, mail, zerolog.Nop())

	_, err := runWorkflow(t, wf, SignupPayload{Email: "ada@example.com", Name: "Ada"})
	require.Error(t, err)

	var stepErr *workflow.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "send-welcome-email", stepErr.Step)
	assert.Equal(t, 2, mail.sends, "send is retried before the run fails")
}

func TestRejectsPayloadWithoutEmail(t *testing.T) {
	wf := New(&stubGenerator{}, &stubMailer{}, zerolog.Nop())

	_, err := runWorkflow(t, wf, SignupPayload{Name: "Ada"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email")
}
