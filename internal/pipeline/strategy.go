package pipeline

import (
	"context"
	"strings"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/config"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/ingest"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/regexparser"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/types"
)

// Confidence assigned to AI parses.
const (
	AITextConfidence = 95
	AIPDFConfidence  = 98
)

// Strategy is one way of turning a document into a resume.
type Strategy struct {
	Method types.ParseMethod
	Run    func(ctx context.Context, doc ingest.Document) (types.ParsedResume, int, error)
}

// Chain returns the ordered strategies for doc under flags. An empty chain
// means the document cannot be parsed with the current flags.
func (p *Pipeline) Chain(doc ingest.Document, flags Flags) []Strategy {
	if doc.IsPDF() {
		if !flags.AIParsingEnabled {
			return nil
		}
		chain := []Strategy{p.aiPDFStrategy()}
		if flags.PDFTextFallback {
			chain = append(chain, pdfRegexStrategy())
		}
		return chain
	}

	if !flags.AIParsingEnabled {
		return []Strategy{regexStrategy(types.ParseMethodRegex)}
	}
	return []Strategy{p.aiTextStrategy(), regexStrategy(types.ParseMethodRegexFallback)}
}

func (p *Pipeline) aiTextStrategy() Strategy {
	return Strategy{
		Method: types.ParseMethodAI,
		Run: func(ctx context.Context, doc ingest.Document) (types.ParsedResume, int, error) {
			if p.parser == nil {
				return types.ParsedResume{}, 0, errNoParser()
			}
			resume, usage, err := p.parser.ParseResume(ctx, types.ParseResumeInput{Text: doc.Content})
			p.recorder.RecordTokens(ctx, config.OperationParse, usage)
			return resume, AITextConfidence, err
		},
	}
}

func (p *Pipeline) aiPDFStrategy() Strategy {
	return Strategy{
		Method: types.ParseMethodAIPDF,
		Run: func(ctx context.Context, doc ingest.Document) (types.ParsedResume, int, error) {
			if p.parser == nil {
				return types.ParsedResume{}, 0, errNoParser()
			}
			resume, usage, err := p.parser.ParseResumePDF(ctx, types.ParseResumePDFInput{
				Data:     doc.Data,
				Filename: doc.Filename,
			})
			p.recorder.RecordTokens(ctx, config.OperationParse, usage)
			return resume, AIPDFConfidence, err
		},
	}
}

func regexStrategy(method types.ParseMethod) Strategy {
	return Strategy{
		Method: method,
		Run: func(_ context.Context, doc ingest.Document) (types.ParsedResume, int, error) {
			res := regexparser.Parse(doc.Content)
			return res.Resume, res.Confidence, nil
		},
	}
}

// pdfRegexStrategy reads the PDF text layer and runs the regex parser on it.
func pdfRegexStrategy() Strategy {
	return Strategy{
		Method: types.ParseMethodRegexFallback,
		Run: func(_ context.Context, doc ingest.Document) (types.ParsedResume, int, error) {
			text, err := ingest.ExtractPDFText(doc.Data)
			if err != nil {
				return types.ParsedResume{}, 0, err
			}
			if strings.TrimSpace(text) == "" {
				return types.ParsedResume{}, 0, errors.NewValidationError(errors.ErrCodeExtractionFailed,
					"PDF has no text layer", nil)
			}
			res := regexparser.Parse(text)
			return res.Resume, res.Confidence, nil
		},
	}
}

func errNoParser() error {
	return errors.NewAIError(errors.ErrCodeAIUnavailable, "No AI parser configured", nil)
}
