package ops

// ReadInput contains parameters for the Read operation.
type ReadInput struct {
	ID string // optional, default: current document
}

// ReadOutput contains the result of the Read operation.
type ReadOutput struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Current bool   `json:"current"`
}

// Read returns a document's text.
func Read(env *Env, input ReadInput) (*ReadOutput, error) {
	id := env.documentID(input.ID)
	content, err := env.Session.Read(id)
	if err != nil {
		return nil, err
	}
	return &ReadOutput{
		ID:      id,
		Content: content,
		Current: id == env.Session.Current(),
	}, nil
}

// SelectInput contains parameters for the Select operation.
type SelectInput struct {
	ID string // required
}

// Select makes a document current.
func Select(env *Env, input SelectInput) (*ReadOutput, error) {
	content, err := env.Session.Select(input.ID)
	if err != nil {
		return nil, err
	}
	return &ReadOutput{ID: input.ID, Content: content, Current: true}, nil
}
