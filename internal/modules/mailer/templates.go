package mailer

import "strings"

// Subjects used by the two workflow emails.
const (
	WelcomeSubject    = "Welcome to Signalist - your stock market toolkit is ready!"
	NewsSubjectPrefix = "\U0001F4C8 Market News Summary Today"
)

const welcomeTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin:0;padding:0;background-color:#141414;font-family:Arial,Helvetica,sans-serif;">
  <table role="presentation" width="100%" cellpadding="0" cellspacing="0" style="background-color:#141414;">
    <tr>
      <td align="center" style="padding:40px 16px;">
        <table role="presentation" width="600" cellpadding="0" cellspacing="0" style="background-color:#1f1f1f;border-radius:8px;">
          <tr>
            <td style="padding:32px;">
              <h1 style="color:#fdd458;font-size:24px;margin:0 0 16px;">Welcome aboard, {{name}}!</h1>
              <p style="color:#d1d5db;font-size:15px;line-height:1.6;margin:0 0 16px;">{{intro}}</p>
              <p style="color:#d1d5db;font-size:15px;line-height:1.6;margin:0 0 24px;">
                Here's what you can do right now:
              </p>
              <ul style="color:#d1d5db;font-size:15px;line-height:1.8;margin:0 0 24px;padding-left:20px;">
                <li>Build your watchlist of favorite stocks</li>
                <li>Set smart price alerts</li>
                <li>Get a daily market news digest tailored to you</li>
              </ul>
              <p style="color:#9ca3af;font-size:13px;margin:0;">
                Happy investing,<br>The Signalist Team
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`

const newsSummaryTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin:0;padding:0;background-color:#141414;font-family:Arial,Helvetica,sans-serif;">
  <table role="presentation" width="100%" cellpadding="0" cellspacing="0" style="background-color:#141414;">
    <tr>
      <td align="center" style="padding:40px 16px;">
        <table role="presentation" width="600" cellpadding="0" cellspacing="0" style="background-color:#1f1f1f;border-radius:8px;">
          <tr>
            <td style="padding:32px;">
              <h1 style="color:#fdd458;font-size:22px;margin:0 0 4px;">Market News Summary</h1>
              <p style="color:#9ca3af;font-size:13px;margin:0 0 24px;">{{date}}</p>
              <div style="color:#d1d5db;font-size:15px;line-height:1.6;">{{newsContent}}</div>
              <p style="color:#9ca3af;font-size:13px;margin:24px 0 0;">
                You're receiving this because you subscribed to daily market news on Signalist.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`

// RenderWelcome fills the welcome template.
func RenderWelcome(name, intro string) string {
	out := strings.Replace(welcomeTemplate, "{{name}}", name, 1)
	return strings.Replace(out, "{{intro}}", intro, 1)
}

// RenderNewsSummary fills the digest template.
func RenderNewsSummary(date, newsContent string) string {
	out := strings.Replace(newsSummaryTemplate, "{{date}}", date, 1)
	return strings.Replace(out, "{{newsContent}}", newsContent, 1)
}
