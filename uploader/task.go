package uploader

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskUploading TaskStatus = "uploading"
	TaskSuccess   TaskStatus = "success"
	TaskError     TaskStatus = "error"
	TaskCancelled TaskStatus = "cancelled"
)

// FileInput is one file handed to UploadBatch. Bytes are held in memory so
// retries can replay the body without re-reading the caller's stream.
type FileInput struct {
	Filename string
	Data     []byte
}

// UploadTask tracks one file through the batch. It is created pending,
// mutated only by the worker goroutine that owns it, and terminal once the
// status is success, error or cancelled.
type UploadTask struct {
	Filename        string
	Status          TaskStatus
	ProgressPercent int
	RetryCount      int
	StoredPath      string
	ErrorMessage    string
}

func (t *UploadTask) terminal() bool {
	switch t.Status {
	case TaskSuccess, TaskError, TaskCancelled:
		return true
	}
	return false
}
