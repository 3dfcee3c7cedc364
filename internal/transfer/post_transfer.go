package transfer

// PostCreation is the parsed compose form.
type PostCreation struct {
	Caption       string
	Title         string
	PostType      string
	ScheduledTime string
	AccountID     int64
	Comments      []CommentInput
}

// MediaInput is one declared media item before assembly. Exactly one of
// FileName/FileBytes (upload) or URL (external) is set.
type MediaInput struct {
	Position    int
	FileName    string
	FileBytes   []byte
	URL         string
	ContentType string
	AltText     string
}

// CommentInput is a trailing comment declared at compose time.
type CommentInput struct {
	Position     int
	Body         string
	DelayMinutes int
	MediaURL     string
}
