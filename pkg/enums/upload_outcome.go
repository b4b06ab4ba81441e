package enums

// UploadOutcome labels how a submitted image finished the recognition workflow.
type UploadOutcome string

const (
	UploadOutcomeMatched         UploadOutcome = "matched"
	UploadOutcomeUnmatched       UploadOutcome = "unmatched"
	UploadOutcomeInferenceFailed UploadOutcome = "inference_failed"
	UploadOutcomeRejected        UploadOutcome = "rejected"
	UploadOutcomeStorageFailed   UploadOutcome = "storage_failed"
)

func (o UploadOutcome) String() string {
	return string(o)
}
