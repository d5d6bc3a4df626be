package batch

// Job is a named sequence of steps
type Job struct {
	Name      string
	Steps     []Step
	Validator ParametersValidator

	// PreventRestart refuses to resume failed or stopped instances
	PreventRestart bool
}

// NewJob creates a restartable job
func NewJob(name string, validator ParametersValidator, steps ...Step) *Job {
	return &Job{
		Name:      name,
		Steps:     steps,
		Validator: validator,
	}
}

// Validate checks params with the job's validator, if any
func (j *Job) Validate(params JobParameters) error {
	if j.Validator == nil {
		return nil
	}
	return j.Validator.Validate(params)
}
