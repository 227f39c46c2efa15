package models

// Receipt is an uploaded image or PDF attached to a bill. The blob lives in
// the receipt store under ObjectKey.
type Receipt struct {
	ID          string
	BillID      string
	FileName    string
	ObjectKey   string
	ContentType string
	Size        int64
	UploadedAt  int64
}
