// Command assess runs one IELTS writing assessment from the terminal using
// the same pipeline as the HTTP server.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"

	"github.com/fadilmartias/ielts-assessor/internal/bootstrap"
	"github.com/fadilmartias/ielts-assessor/internal/config"
	"github.com/fadilmartias/ielts-assessor/internal/logger"
	"github.com/fadilmartias/ielts-assessor/internal/model"
	"github.com/fadilmartias/ielts-assessor/internal/report"
	"github.com/fadilmartias/ielts-assessor/internal/usecase"
	"github.com/fadilmartias/ielts-assessor/internal/util"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type options struct {
	taskType       string
	question       string
	questionFile   string
	questionImages []string
	answer         string
	answerFile     string
	answerImages   []string
	name           string
	email          string
	asJSON         bool
	verbose        bool
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Assess an IELTS writing task",
		Long: `Assess an IELTS writing task with the configured assessment backend.

The question and the answer can each be given as text, as a text file or as
one or more images (photos or PDF scans of handwriting).`,
		Example: `  assess --task-type "Task 2" --question "Discuss the impact of social media." --answer-file essay.txt
  assess --task-type "Task 1 (Academic)" --question-image chart.png --answer-image p1.jpg --answer-image p2.jpg`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.taskType, "task-type", "t", string(model.TaskTwo), `"Task 1 (Academic)", "Task 1 (General)" or "Task 2"`)
	f.StringVarP(&opts.question, "question", "q", "", "question text")
	f.StringVar(&opts.questionFile, "question-file", "", "read the question from a file")
	f.StringArrayVar(&opts.questionImages, "question-image", nil, "question image or PDF (repeatable, in page order)")
	f.StringVarP(&opts.answer, "answer", "a", "", "answer text")
	f.StringVar(&opts.answerFile, "answer-file", "", "read the answer from a file")
	f.StringArrayVar(&opts.answerImages, "answer-image", nil, "answer image or PDF (repeatable, in page order)")
	f.StringVar(&opts.name, "name", "", "candidate name")
	f.StringVar(&opts.email, "email", "", "candidate email")
	f.BoolVar(&opts.asJSON, "json", false, "print the raw report as JSON")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log pipeline steps to stderr")
	cmd.MarkFlagsMutuallyExclusive("question", "question-file")
	cmd.MarkFlagsMutuallyExclusive("answer", "answer-file")

	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	input, err := buildInput(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	log := logger.NewConsoleLogger(opts.verbose)
	defer log.Sync()

	collab, err := bootstrap.NewCollaborators(ctx, config.LoadAssessorConfig(), log)
	if err != nil {
		return err
	}
	uc := usecase.NewAssessmentUsecase(collab, nil, log)

	fmt.Fprintln(cmd.ErrOrStderr(), "Assessing your writing...")
	result, err := uc.Submit(ctx, input)
	if err != nil {
		return printError(cmd, err)
	}

	if opts.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Fprint(cmd.OutOrStdout(), renderTerminal(report.Render(result)))
	return nil
}

func buildInput(opts *options) (model.SubmissionInput, error) {
	in := model.SubmissionInput{
		TaskType:       opts.taskType,
		Question:       opts.question,
		Answer:         opts.answer,
		CandidateName:  opts.name,
		CandidateEmail: opts.email,
	}
	var err error
	if opts.questionFile != "" {
		if in.Question, err = readText(opts.questionFile); err != nil {
			return in, err
		}
	}
	if opts.answerFile != "" {
		if in.Answer, err = readText(opts.answerFile); err != nil {
			return in, err
		}
	}
	if in.QuestionImages, err = encodeAll(opts.questionImages); err != nil {
		return in, err
	}
	if in.AnswerImages, err = encodeAll(opts.answerImages); err != nil {
		return in, err
	}
	return in, nil
}

func readText(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

func encodeAll(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		uri, err := util.EncodeFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, uri)
	}
	return out, nil
}

func printError(cmd *cobra.Command, err error) error {
	w := cmd.ErrOrStderr()
	fmt.Fprintln(w, errorStyle.Render(usecase.UserMessage(err)))
	var ae *usecase.AssessmentError
	if errors.As(err, &ae) {
		writeFieldErrors(w, ae.Fields)
	}
	return fmt.Errorf("assessment failed (%s)", strings.ToLower(string(usecase.KindOf(err))))
}

// writeFieldErrors prints one line per field, ordered by field name.
func writeFieldErrors(w io.Writer, fields map[string]string) {
	for _, field := range slices.Sorted(maps.Keys(fields)) {
		fmt.Fprintf(w, "  %s: %s\n", field, fields[field])
	}
}
