package models

// QAPair is a question with its answer, before tier augmentation.
type QAPair struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// SubTopic is one concept inside a curated sample topic.
type SubTopic struct {
	Name            string `json:"name" yaml:"name"`
	Definition      string `json:"definition" yaml:"definition"`
	Characteristics string `json:"characteristics,omitempty" yaml:"characteristics"`
	Examples        string `json:"examples,omitempty" yaml:"examples"`
	Applications    string `json:"applications,omitempty" yaml:"applications"`
}

// SampleTopic is a curated topic with an overview and pre-authored questions.
type SampleTopic struct {
	Name       string     `json:"name" yaml:"name"`
	Definition string     `json:"definition" yaml:"definition"`
	Topics     []SubTopic `json:"topics" yaml:"topics"`
	Questions  []QAPair   `json:"questions" yaml:"questions"`
}
