package agent

// Task states returned to the transport layer.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Artifact is a named structured payload attached to a result, consumable
// without re-parsing the display text.
type Artifact struct {
	Name string      `json:"name"`
	Data interface{} `json:"data"`
}

// TaskStatus carries the final state and the display message.
type TaskStatus struct {
	State   string `json:"state"`
	Message string `json:"message"`
}

// TaskResult is the response handed back to the transport layer.
type TaskResult struct {
	TaskID    string     `json:"id"`
	ContextID string     `json:"context_id"`
	Status    TaskStatus `json:"status"`
	Artifacts []Artifact `json:"artifacts"`
}

func (r *TaskResult) addArtifact(name string, data interface{}) {
	r.Artifacts = append(r.Artifacts, Artifact{Name: name, Data: data})
}

// Artifact returns the named artifact payload, or nil.
func (r *TaskResult) Artifact(name string) interface{} {
	for _, a := range r.Artifacts {
		if a.Name == name {
			return a.Data
		}
	}
	return nil
}
