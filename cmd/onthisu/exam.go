package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ngochuy/onthisu/internal/client"
	"github.com/ngochuy/onthisu/internal/i18n"
	"github.com/ngochuy/onthisu/internal/model"
	"github.com/ngochuy/onthisu/internal/session"
)

// localizedContext initializes translations and returns a context carrying
// the localizer for the chosen language.
func localizedContext(v *viper.Viper) (context.Context, error) {
	lang := v.GetString("lang")
	if err := i18n.Init(lang); err != nil {
		return nil, fmt.Errorf("init i18n: %w", err)
	}
	return i18n.WithLocalizer(context.Background(), i18n.NewLocalizer(lang)), nil
}

func runExam(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	ctx, err := localizedContext(v)
	if err != nil {
		return err
	}
	cli := client.New(v.GetString("server"))
	in := bufio.NewScanner(os.Stdin)

	fmt.Println("=== " + i18n.T(ctx, "AppTitle") + " ===")
	fmt.Print(i18n.T(ctx, "EnterName"))
	if !in.Scan() {
		return nil
	}

	s, err := session.New(strings.TrimSpace(in.Text()))
	if err != nil {
		if errors.Is(err, session.ErrEmptyUserID) {
			fmt.Println(i18n.T(ctx, "NameRequired"))
			return nil
		}
		return err
	}

	fmt.Println(i18n.T(ctx, "LoadingQuestions"))
	if err := s.Start(ctx, cli); err != nil {
		return fmt.Errorf("start exam: %w", err)
	}

	printQuestions(s.Questions())
	fmt.Println(i18n.Td(ctx, "QuestionCount", map[string]any{"Count": len(s.Questions())}))
	fmt.Println(i18n.T(ctx, "AnswerHelp"))

	readCtx, stopReader := context.WithCancel(context.Background())
	defer stopReader()
	lines := readLines(readCtx, in)

	expired := make(chan struct{}, 1)
	timerCtx, stopTimer := context.WithCancel(context.Background())
	defer stopTimer()
	go s.RunTimer(timerCtx, nil,
		func() { fmt.Println("\n" + i18n.T(ctx, "OneMinuteWarning")) },
		func() { expired <- struct{}{} },
	)

	for {
		select {
		case <-expired:
			// Time is up: submit without asking.
			fmt.Println(i18n.T(ctx, "TimeUp"))
			if submitAndReport(ctx, s, cli) {
				return nil
			}
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if strings.EqualFold(line, "nop") {
				if s.State() == session.StateInProgress {
					fmt.Print(i18n.T(ctx, "ConfirmSubmit"))
					confirm, ok := <-lines
					if !ok {
						return nil
					}
					if !strings.EqualFold(strings.TrimSpace(confirm), "y") {
						fmt.Println(i18n.T(ctx, "ContinueExam"))
						continue
					}
				}
				stopTimer()
				if submitAndReport(ctx, s, cli) {
					return nil
				}
				continue
			}
			if s.State() != session.StateInProgress {
				continue
			}
			if !applyAnswer(s, line) {
				fmt.Println(i18n.T(ctx, "InvalidInput"))
				continue
			}
			remaining := s.Remaining()
			fmt.Println(i18n.Td(ctx, "TimeRemaining", map[string]any{
				"Minutes": fmt.Sprintf("%02d", remaining/60),
				"Seconds": fmt.Sprintf("%02d", remaining%60),
			}))
		}
	}
}

// readLines feeds scanned lines to the returned channel until input is
// exhausted or ctx is cancelled, so the reader goroutine never outlives
// its caller blocked on a send.
func readLines(ctx context.Context, in *bufio.Scanner) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		for in.Scan() {
			select {
			case lines <- in.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

// applyAnswer parses one answer line and records it on the session.
// Accepted forms: "<n> <A-D>" for multiple choice and
// "<n> <A-D> Đúng|Sai" for one true/false statement.
func applyAnswer(s *session.Session, line string) bool {
	fields := strings.Fields(line)
	if len(fields) < 2 || len(fields) > 3 {
		return false
	}
	num, err := strconv.Atoi(fields[0])
	if err != nil || num < 1 || num > len(s.Questions()) {
		return false
	}
	index := num - 1
	letter := strings.ToUpper(fields[1])
	if len(letter) != 1 || letter < "A" || letter > "D" {
		return false
	}

	q := s.Questions()[index]
	if q.IsTrueFalse() {
		if len(fields) != 3 {
			return false
		}
		truth, ok := parseTruth(fields[2])
		if !ok {
			return false
		}
		s.SetStatement(index, letter, truth)
		return true
	}

	if len(fields) != 2 {
		return false
	}
	value := optionValue(q, letter)
	if value == "" {
		return false
	}
	s.SelectOption(index, value)
	return true
}

func parseTruth(word string) (string, bool) {
	switch {
	case strings.EqualFold(word, model.TruthTrue), strings.EqualFold(word, "dung"):
		return model.TruthTrue, true
	case strings.EqualFold(word, model.TruthFalse), strings.EqualFold(word, "sai"):
		return model.TruthFalse, true
	}
	return "", false
}

// optionValue maps a letter to the option text; the captured answer is the
// option value itself, matching what the browser client submits.
func optionValue(q model.Question, letter string) string {
	switch letter {
	case "A":
		return q.OptionA
	case "B":
		return q.OptionB
	case "C":
		return q.OptionC
	case "D":
		return q.OptionD
	}
	return ""
}

func printQuestions(questions []model.Question) {
	for i, q := range questions {
		fmt.Printf("\nQ%d [%s]: %s\n", i+1, q.Type, q.Question)
		if q.IsTrueFalse() {
			statements := q.Statements()
			for _, key := range model.StatementKeys {
				if statements[key] == "" {
					continue
				}
				fmt.Printf("  %s. %s (%s/%s)\n", key, statements[key], model.TruthTrue, model.TruthFalse)
			}
			continue
		}
		for _, opt := range []struct{ letter, value string }{
			{"A", q.OptionA}, {"B", q.OptionB}, {"C", q.OptionC}, {"D", q.OptionD},
		} {
			if opt.value == "" {
				continue
			}
			fmt.Printf("  %s. %s\n", opt.letter, opt.value)
		}
	}
}

// submitAndReport grades, transmits and prints the outcome. Returns false
// when the transmission failed so the caller can let the user retry.
func submitAndReport(ctx context.Context, s *session.Session, cli *client.Client) bool {
	fmt.Println(i18n.T(ctx, "Submitting"))
	result, err := s.Submit(ctx, cli)
	if err != nil {
		fmt.Println(i18n.Td(ctx, "SubmitFailed", map[string]any{"Error": err.Error()}))
		return false
	}

	fmt.Println(i18n.Td(ctx, "Score", map[string]any{"Score": result.Score, "Total": result.Total}))
	switch percent := scorePercent(result); {
	case percent >= 80:
		fmt.Println(i18n.T(ctx, "ScoreGreat"))
	case percent >= 50:
		fmt.Println(i18n.T(ctx, "ScorePass"))
	default:
		fmt.Println(i18n.T(ctx, "ScoreRetry"))
	}

	printReview(ctx, s)

	if history, err := cli.History(ctx, s.UserID()); err == nil {
		printHistory(ctx, s.UserID(), history)
	}
	return true
}

func scorePercent(r model.Result) float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Score) / float64(r.Total) * 100
}

// printReview renders every question with the captured answer next to the
// correct one, straight from session memory.
func printReview(ctx context.Context, s *session.Session) {
	fmt.Println("\n" + i18n.T(ctx, "ReviewHeader"))
	for _, r := range s.Review() {
		mark := "✗"
		if r.IsCorrect {
			mark = "✓"
		}
		fmt.Printf("\n%s Q%d: %s\n", mark, r.QuestionID+1, r.Question)

		if r.Type == model.CategoryTrueFalse {
			truth := map[string]string{"A": r.AnswerA, "B": r.AnswerB, "C": r.AnswerC, "D": r.AnswerD}
			for _, key := range model.StatementKeys {
				answered, ok := r.UserAnswers[key]
				if !ok {
					answered = i18n.T(ctx, "NoAnswer")
				}
				fmt.Printf("  %s. %s: %s", key, i18n.T(ctx, "YourAnswer"), answered)
				if answered != truth[key] {
					fmt.Printf(" | %s: %s", i18n.T(ctx, "CorrectAnswer"), truth[key])
				}
				fmt.Println()
			}
			if r.Explain != "" {
				fmt.Printf("  %s: %s\n", i18n.T(ctx, "Explanation"), r.Explain)
			}
			continue
		}

		answered := r.UserAnswer
		if answered == "" {
			answered = i18n.T(ctx, "NoAnswer")
		}
		fmt.Printf("  %s: %s\n", i18n.T(ctx, "YourAnswer"), answered)
		if !r.IsCorrect {
			fmt.Printf("  %s: %s\n", i18n.T(ctx, "CorrectAnswer"), r.CorrectAnswer)
		}
	}
}

func printHistory(ctx context.Context, userID string, results []model.Result) {
	fmt.Println("\n" + i18n.Td(ctx, "HistoryHeader", map[string]any{"User": userID}))
	if len(results) == 0 {
		fmt.Println(i18n.T(ctx, "NoHistory"))
		return
	}
	for _, r := range results {
		fmt.Printf("  %s  %d / %d\n", r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Score, r.Total)
	}
}

func runHistory(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	ctx, err := localizedContext(v)
	if err != nil {
		return err
	}
	cli := client.New(v.GetString("server"))

	userID := v.GetString("user")
	results, err := cli.History(ctx, userID)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}
	printHistory(ctx, userID, results)
	return nil
}
