package attachments

import (
	"strconv"

	"github.com/qbfetch/qbfetch/internal/api"
	"github.com/qbfetch/qbfetch/internal/models"
)

// TaskPlan is the fixed set of attachment tasks for a run, enumerated before any download starts.
type TaskPlan struct {
	Tasks []models.AttachmentTask

	MissingID    int // records without a record id; never dispatched
	NoAttachment int // records whose attachment field is absent or empty
	Duplicates   int // repeated record ids; only the first is dispatched
}

// PlanTasks creates one task per record that has a record id and a non-empty
// value in the attachment field, in record order.
func PlanTasks(records []*models.Record, tableID string, fileFieldID int) TaskPlan {
	fieldKey := strconv.Itoa(fileFieldID)
	seen := make(map[string]bool, len(records))

	var plan TaskPlan
	for _, rec := range records {
		recordID, ok := rec.ID()
		if !ok {
			plan.MissingID++
			continue
		}
		if !rec.HasValue(fieldKey) {
			plan.NoAttachment++
			continue
		}
		if seen[recordID] {
			plan.Duplicates++
			continue
		}
		seen[recordID] = true

		plan.Tasks = append(plan.Tasks, models.AttachmentTask{
			RecordID:  recordID,
			SourceURL: api.FilePath(tableID, recordID, fileFieldID),
		})
	}
	return plan
}
