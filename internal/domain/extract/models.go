// Package extract turns free text into typed records by asking a chat model
// for a JSON object and validating the reply against a JSON Schema.
package extract

// Sentiment is one of happy, neutral or sad.
type Sentiment string

const (
	SentimentHappy   Sentiment = "happy"
	SentimentNeutral Sentiment = "neutral"
	SentimentSad     Sentiment = "sad"
)

// Classification is the sentiment, aggressiveness (1-10) and language of a
// passage.
type Classification struct {
	Sentiment      Sentiment `json:"sentiment" yaml:"sentiment"`
	Aggressiveness int       `json:"aggressiveness" yaml:"aggressiveness"`
	Language       string    `json:"language" yaml:"language"`
}

// Person is what the text says about someone. Unknown attributes are nil.
type Person struct {
	Name           *string `json:"name" yaml:"name"`
	HairColor      *string `json:"hair_color" yaml:"hair_color"`
	HeightInMeters *string `json:"height_in_meters" yaml:"height_in_meters"`
}

// FullAnalysis is a Classification plus the people mentioned in the text.
type FullAnalysis struct {
	Classification `yaml:",inline"`
	People         []Person `json:"people" yaml:"people"`
}
