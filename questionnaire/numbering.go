package questionnaire

// Config holds the directives of the config documents.
type Config map[string]any

// Merge returns a new Config with other laid over c.
func (c Config) Merge(other Config) Config {
	merged := make(Config, len(c)+len(other))
	for k, v := range c {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// Questionnaire is a parsed schema ready for one request: config merged,
// config documents dropped, answerable questions numbered.
type Questionnaire struct {
	Config Config
	// Items keeps headers in place for rendering.
	Items []Definition
}

// Prepare folds every config document into one Config, left to right, and
// numbers every item that is neither a header nor a config document from 1.
// The input slice is not modified.
func Prepare(defs []Definition) Questionnaire {
	q := Questionnaire{Config: Config{}}

	id := 1
	for _, def := range defs {
		if def.Kind == KindConfig {
			q.Config = q.Config.Merge(def.Config)
			continue
		}
		if def.Numbered() {
			def.ID = id
			id++
		}
		q.Items = append(q.Items, def)
	}
	return q
}

// Questions returns the numbered items only; index i holds question i+1.
func (q Questionnaire) Questions() []Definition {
	questions := make([]Definition, 0, len(q.Items))
	for _, item := range q.Items {
		if item.Numbered() {
			questions = append(questions, item)
		}
	}
	return questions
}
