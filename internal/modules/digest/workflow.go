package digest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chanatinart02/next-stock-tracker-app/internal/modules/ai"
	"github.com/chanatinart02/next-stock-tracker-app/internal/modules/news"
	"github.com/chanatinart02/next-stock-tracker-app/internal/modules/users"
	"github.com/chanatinart02/next-stock-tracker-app/internal/workflow"
	"github.com/rs/zerolog"
)

// WorkflowID identifies the daily news digest workflow.
const WorkflowID = "daily-news-summary"

// TriggerEvent dispatches the workflow on demand, alongside its cron
// schedule.
const TriggerEvent = "send.daily.news"

// maxArticlesPerUser caps how many articles feed one user's summary.
const maxArticlesPerUser = 6

// noNewsContent is the digest body when a user has no articles.
const noNewsContent = "No market news."

// Directory lists the users eligible for the digest.
type Directory interface {
	ListForDigest() ([]users.DigestUser, error)
}

// WatchlistSource resolves a user's watched symbols by email.
type WatchlistSource interface {
	SymbolsForUser(email string) ([]string, error)
}

// NewsSource fetches articles, scoped to symbols when given any.
type NewsSource interface {
	FetchNews(ctx context.Context, symbols []string) ([]news.Article, error)
}

// TextGenerator produces the summary HTML from a prompt.
type TextGenerator interface {
	Infer(ctx context.Context, prompt, idempotencyKey string) (string, error)
}

// Mailer delivers one digest email.
type Mailer interface {
	SendNewsSummary(to, date, newsContent string) error
}

// Workflow builds and sends each user a personalized market news
// summary. One user's bad news fetch, failed summary, or bounced email
// never blocks the others.
type Workflow struct {
	directory  Directory
	watchlists WatchlistSource
	newsSource NewsSource
	generator  TextGenerator
	mailer     Mailer
	schedule   string
	log        zerolog.Logger
}

// New creates the daily digest workflow. schedule is the cron spec the
// engine registers alongside the event trigger.
func New(directory Directory, watchlists WatchlistSource, newsSource NewsSource, generator TextGenerator, mailer Mailer, schedule string, log zerolog.Logger) *Workflow {
	return &Workflow{
		directory:  directory,
		watchlists: watchlists,
		newsSource: newsSource,
		generator:  generator,
		mailer:     mailer,
		schedule:   schedule,
		log:        log.With().Str("workflow", WorkflowID).Logger(),
	}
}

// Definition returns the engine registration for this workflow.
func (w *Workflow) Definition() workflow.Definition {
	return workflow.Definition{
		ID:      WorkflowID,
		Event:   TriggerEvent,
		Cron:    w.schedule,
		Handler: w.run,
	}
}

// userNews pairs a recipient with the articles selected for them.
type userNews struct {
	User     users.DigestUser `json:"user"`
	Articles []news.Article   `json:"articles"`
}

// userSummary pairs a recipient with their rendered digest body. A nil
// Content means summarization failed and the user is skipped at send.
type userSummary struct {
	User    users.DigestUser `json:"user"`
	Content *string          `json:"content"`
}

func (w *Workflow) run(ctx context.Context, wc *workflow.Context) (workflow.Output, error) {
	recipients, err := workflow.Step(ctx, wc, "get-all-users", func(ctx context.Context) ([]users.DigestUser, error) {
		return w.directory.ListForDigest()
	})
	if err != nil {
		return workflow.Output{}, err
	}
	if len(recipients) == 0 {
		return workflow.Output{Success: false, Message: "No users found for news email"}, nil
	}

	perUser, err := workflow.Step(ctx, wc, "fetch-user-news", func(ctx context.Context) ([]userNews, error) {
		return w.fetchAll(ctx, recipients), nil
	})
	if err != nil {
		return workflow.Output{}, err
	}

	summaries := make([]userSummary, 0, len(perUser))
	for _, entry := range perUser {
		entry := entry
		content, err := workflow.Step(ctx, wc, "summarize-news-"+entry.User.Email, func(ctx context.Context) (string, error) {
			return w.summarize(ctx, wc.RunID, entry)
		})
		if err != nil {
			var stepErr *workflow.StepError
			if !errors.As(err, &stepErr) {
				return workflow.Output{}, err
			}
			w.log.Error().Err(err).Str("email", entry.User.Email).Msg("Failed to summarize news for user")
			summaries = append(summaries, userSummary{User: entry.User})
			continue
		}
		summaries = append(summaries, userSummary{User: entry.User, Content: &content})
	}

	_, err = workflow.Step(ctx, wc, "send-news-emails", func(ctx context.Context) (int, error) {
		return w.sendAll(summaries), nil
	})
	if err != nil {
		return workflow.Output{}, err
	}

	return workflow.Output{Success: true, Message: "Daily news summary emails sent successfully"}, nil
}

// fetchAll collects articles for every recipient sequentially. A user
// whose fetch fails gets an empty list so the digest still goes out to
// everyone else.
func (w *Workflow) fetchAll(ctx context.Context, recipients []users.DigestUser) []userNews {
	out := make([]userNews, 0, len(recipients))

	for _, user := range recipients {
		articles, err := w.fetchForUser(ctx, user.Email)
		if err != nil {
			w.log.Error().Err(err).Str("email", user.Email).Msg("Failed to fetch news for user")
			articles = nil
		}
		out = append(out, userNews{User: user, Articles: articles})
	}

	return out
}

// fetchForUser returns up to maxArticlesPerUser articles for one user,
// preferring watchlist news and falling back to general market news.
func (w *Workflow) fetchForUser(ctx context.Context, email string) ([]news.Article, error) {
	symbols, err := w.watchlists.SymbolsForUser(email)
	if err != nil {
		w.log.Warn().Err(err).Str("email", email).Msg("Failed to resolve watchlist, using general news")
		symbols = nil
	}

	if len(symbols) > 0 {
		articles, err := w.newsSource.FetchNews(ctx, symbols)
		if err == nil && len(articles) > 0 {
			return cap6(articles), nil
		}
		if err != nil {
			w.log.Warn().Err(err).Str("email", email).Msg("Watchlist news fetch failed, using general news")
		}
	}

	articles, err := w.newsSource.FetchNews(ctx, nil)
	if err != nil {
		return nil, err
	}

	return cap6(articles), nil
}

func cap6(articles []news.Article) []news.Article {
	if len(articles) > maxArticlesPerUser {
		return articles[:maxArticlesPerUser]
	}
	return articles
}

// summarize renders one user's digest body. Users without articles get
// the fixed no-news body without an inference call.
func (w *Workflow) summarize(ctx context.Context, runID string, entry userNews) (string, error) {
	if len(entry.Articles) == 0 {
		return noNewsContent, nil
	}

	prompt := ai.NewsSummaryPrompt(entry.Articles)
	content, err := w.generator.Infer(ctx, prompt, runID+":summarize-news-"+entry.User.Email)
	if err != nil {
		return "", err
	}
	if content == "" {
		return noNewsContent, nil
	}

	return content, nil
}

// sendAll fans the emails out concurrently. Individual send failures
// are logged and counted but never abort the batch.
func (w *Workflow) sendAll(summaries []userSummary) int {
	date := time.Now().Format("January 2, 2006")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		sent int
	)

	for _, summary := range summaries {
		if summary.Content == nil {
			w.log.Warn().Str("email", summary.User.Email).Msg("Skipping user with no digest content")
			continue
		}

		wg.Add(1)
		go func(s userSummary) {
			defer wg.Done()

			if err := w.mailer.SendNewsSummary(s.User.Email, date, *s.Content); err != nil {
				w.log.Error().Err(err).Str("email", s.User.Email).Msg("Failed to send digest email")
				return
			}

			mu.Lock()
			sent++
			mu.Unlock()
		}(summary)
	}

	wg.Wait()
	return sent
}
