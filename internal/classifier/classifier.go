// Package classifier decides whether a post is a genuine update about a
// user's project by asking a language model for a literal true/false.
package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/sakif/shiptrack/internal/metrics"
)

// Classifier judges a single post against a project description.
// Malformed model output is false, never an error. Errors are reserved for
// transport or API failures.
type Classifier interface {
	Classify(ctx context.Context, postText, projectDescription string) (bool, error)
}

// ParseVerdict accepts only "true", ignoring case and surrounding whitespace.
func ParseVerdict(raw string) bool {
	return strings.EqualFold(strings.TrimSpace(raw), "true")
}

// BuildPrompt renders the single user-role prompt sent to the model.
func BuildPrompt(postText, projectDescription string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze whether this post is an update about the author's project, described as: %q\n\n", projectDescription)
	fmt.Fprintf(&b, "Post: %q\n\n", postText)
	b.WriteString("A valid update:\n")
	b.WriteString("1. Is about the author's own project or work\n")
	b.WriteString("2. Shows progress, shipped features, fixed bugs, learning or challenges\n")
	b.WriteString("3. Is substantive, not just a link, an emoji or a casual mention\n\n")
	b.WriteString(`Respond with only "true" or "false".`)
	return b.String()
}

// completer is one provider round trip: prompt in, raw text out.
type completer interface {
	complete(ctx context.Context, prompt string) (string, error)
}

// llmClassifier adapts a completer to Classifier and records metrics.
type llmClassifier struct {
	c completer
}

func (l *llmClassifier) Classify(ctx context.Context, postText, projectDescription string) (bool, error) {
	raw, err := l.c.complete(ctx, BuildPrompt(postText, projectDescription))
	if err != nil {
		metrics.ClassifierCalls.WithLabelValues("error").Inc()
		return false, err
	}
	ok := ParseVerdict(raw)
	metrics.ClassifierCalls.WithLabelValues(fmt.Sprint(ok)).Inc()
	return ok, nil
}

// Options selects and configures a provider.
type Options struct {
	Provider string // "openai" or "gemini"
	Model    string
	APIKey   string
	BaseURL  string
}

// New builds the classifier for opts.Provider.
func New(ctx context.Context, opts Options) (Classifier, error) {
	switch strings.ToLower(opts.Provider) {
	case "", "openai":
		return &llmClassifier{c: newOpenAI(opts.APIKey, opts.Model, opts.BaseURL, nil)}, nil
	case "gemini":
		g, err := newGemini(ctx, opts.APIKey, opts.Model)
		if err != nil {
			return nil, err
		}
		return &llmClassifier{c: g}, nil
	default:
		return nil, fmt.Errorf("classifier: unknown provider %q", opts.Provider)
	}
}
