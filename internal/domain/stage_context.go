package domain

// StageOptions are the feature toggles captured from the pipeline
// configuration when a job is dispatched. Stages read them to decide
// whether optional processing runs.
type StageOptions struct {
	DuplicateDetection        bool
	QualityAssessment         bool
	InteractiveTransformation bool
}

// StageContext accumulates one source's state as it moves through the
// pipeline: the source identifier plus every prior stage's outputs. A stage
// merges its result into the context with Set; the context is owned by a
// single job execution and is never shared across goroutines.
type StageContext struct {
	SourceURL string
	Options   StageOptions

	values map[string]any
}

func NewStageContext(sourceURL string, options StageOptions) *StageContext {
	return &StageContext{
		SourceURL: sourceURL,
		Options:   options,
		values:    make(map[string]any),
	}
}

func (c *StageContext) Set(key string, value any) {
	c.values[key] = value
}

func (c *StageContext) Get(key string) (any, bool) {
	value, ok := c.values[key]
	return value, ok
}

// GetString returns the value for key when it is a string, or "".
func (c *StageContext) GetString(key string) string {
	value, _ := c.values[key].(string)
	return value
}

// GetInt returns the value for key when it is an int, or 0.
func (c *StageContext) GetInt(key string) int {
	value, _ := c.values[key].(int)
	return value
}

// GetBool returns the value for key when it is a bool, or false.
func (c *StageContext) GetBool(key string) bool {
	value, _ := c.values[key].(bool)
	return value
}
