package news

// Article is one market news item. Related carries the symbol the
// article was fetched for ("" for general market news).
type Article struct {
	ID       int64  `json:"id"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	URL      string `json:"url"`
	Related  string `json:"related"`
	Datetime int64  `json:"datetime"` // Unix seconds
}
