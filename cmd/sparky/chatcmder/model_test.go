package chatcmder

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/sparky/pkg/llm"
	"github.com/papercomputeco/sparky/pkg/orchestrator"
)

type fakeRunner struct {
	mu        sync.Mutex
	histories [][]llm.HistoryEntry
	queries   []string
	result    orchestrator.Result
	err       error
}

func (f *fakeRunner) Run(_ context.Context, query string, history []llm.HistoryEntry) (orchestrator.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	f.histories = append(f.histories, history)
	return f.result, f.err
}

func plainRender(text string, _ int) string {
	return text
}

func typeText(m model, text string) model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return next.(model)
}

func press(m model, key tea.KeyType) (model, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: key})
	return next.(model), cmd
}

// answerOf runs the batched command returned by submit and picks out the
// assistant answer.
func answerOf(cmd tea.Cmd) answerMsg {
	Expect(cmd).NotTo(BeNil())
	batch, ok := cmd().(tea.BatchMsg)
	Expect(ok).To(BeTrue())
	for _, c := range batch {
		if c == nil {
			continue
		}
		if msg, ok := c().(answerMsg); ok {
			return msg
		}
	}
	Fail("no answer in batch")
	return answerMsg{}
}

var _ = Describe("chat model", func() {
	var (
		runner *fakeRunner
		m      model
	)

	BeforeEach(func() {
		runner = &fakeRunner{result: orchestrator.Result{
			FinalText:      "maya and leo are online!",
			Succeeded:      true,
			IterationsUsed: 2,
		}}
		m = newModel(context.Background(), runner)
		m.render = plainRender
		next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
		m = next.(model)
	})

	It("ignores enter on a blank input", func() {
		m = typeText(m, "   ")
		m, cmd := press(m, tea.KeyEnter)
		Expect(cmd).To(BeNil())
		Expect(m.waiting).To(BeFalse())
		Expect(runner.queries).To(BeEmpty())
	})

	It("sends the question and records the exchange in history", func() {
		m = typeText(m, "who is online?")
		m, cmd := press(m, tea.KeyEnter)
		Expect(m.waiting).To(BeTrue())
		Expect(m.input.Value()).To(BeEmpty())

		msg := answerOf(cmd)
		Expect(msg.query).To(Equal("who is online?"))
		Expect(runner.histories[0]).To(BeEmpty())

		next, _ := m.Update(msg)
		m = next.(model)
		Expect(m.waiting).To(BeFalse())
		Expect(m.history).To(Equal([]llm.HistoryEntry{
			{Role: "user", Text: "who is online?"},
			{Role: "model", Text: "maya and leo are online!"},
		}))
		Expect(m.status).To(ContainSubstring("2 iteration(s)"))
		Expect(m.View()).To(ContainSubstring("maya and leo are online!"))
	})

	It("replays earlier exchanges with follow-up questions", func() {
		m = typeText(m, "who is online?")
		m, cmd := press(m, tea.KeyEnter)
		next, _ := m.Update(answerOf(cmd))
		m = next.(model)

		m = typeText(m, "and who is banned?")
		_, cmd = press(m, tea.KeyEnter)
		answerOf(cmd)

		Expect(runner.queries).To(Equal([]string{"who is online?", "and who is banned?"}))
		Expect(runner.histories[1]).To(HaveLen(2))
		Expect(runner.histories[1][0].Text).To(Equal("who is online?"))
	})

	It("does not send while an answer is pending", func() {
		m = typeText(m, "first")
		m, _ = press(m, tea.KeyEnter)

		m = typeText(m, "second")
		_, cmd := press(m, tea.KeyEnter)
		Expect(cmd).To(BeNil())
	})

	It("keeps history unchanged when the run fails", func() {
		runner.err = errors.New("context canceled")
		m = typeText(m, "hello")
		m, cmd := press(m, tea.KeyEnter)

		next, _ := m.Update(answerOf(cmd))
		m = next.(model)
		Expect(m.history).To(BeEmpty())
		Expect(m.failed).To(BeTrue())
		Expect(m.status).To(Equal("error: context canceled"))
	})

	It("flags degraded answers but keeps them in history", func() {
		runner.result = orchestrator.Result{FinalText: orchestrator.FallbackMessage, IterationsUsed: 5}
		m = typeText(m, "loop forever")
		m, cmd := press(m, tea.KeyEnter)

		next, _ := m.Update(answerOf(cmd))
		m = next.(model)
		Expect(m.failed).To(BeTrue())
		Expect(m.history).To(HaveLen(2))
	})

	DescribeTable("quits on",
		func(key tea.KeyType) {
			_, cmd := press(m, key)
			Expect(cmd).NotTo(BeNil())
			Expect(cmd()).To(Equal(tea.Quit()))
		},
		Entry("esc", tea.KeyEsc),
		Entry("ctrl+c", tea.KeyCtrlC),
	)

	It("truncates the status line to the window width", func() {
		next, _ := m.Update(tea.WindowSizeMsg{Width: 10, Height: 30})
		m = next.(model)
		m.status = "a very long status line that cannot fit"
		Expect(m.View()).NotTo(ContainSubstring("cannot fit"))
	})
})
