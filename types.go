package newsapi

// Node is a content record as the content platform stores it.
type Node struct {
	ID          int64
	Type        string
	Title       string
	Body        TextWithSummary
	PublishedAt int64 // unix seconds
}

// TextWithSummary is a rich-text field value.
type TextWithSummary struct {
	Value   string
	Summary string
}

// ImageItem is one delta of an image field: display metadata plus a
// reference to the stored file.
type ImageItem struct {
	TargetID int64
	Title    string
	Alt      string
	Width    int
	Height   int
}

// File is a managed file. URI uses a stream scheme, e.g. "public://2024/a.jpg".
type File struct {
	ID       int64
	URI      string
	Filename string
	MIME     string
	Size     int64
}

// NewsRecord is one entry of the feed's "data" array.
type NewsRecord struct {
	Title         string        `json:"title"`
	Body          string        `json:"body"`
	Summary       string        `json:"summary"`
	Image         []ImageRecord `json:"image"`
	PublishedDate string        `json:"published_date"`
	Tags          []string      `json:"tags"`
	ViewCount     []int         `json:"viewcount"`
}

// ImageRecord is an image item flattened for the feed. URL is empty when
// the referenced file is gone.
type ImageRecord struct {
	Title    string `json:"title"`
	Alt      string `json:"alt"`
	Height   int    `json:"height"`
	Width    int    `json:"width"`
	TargetID int64  `json:"target_id"`
	URL      string `json:"url"`
}

// FeedResponse is the body of a successful feed request.
type FeedResponse struct {
	Title string       `json:"title"`
	Data  []NewsRecord `json:"data"`
}
