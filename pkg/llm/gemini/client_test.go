package gemini_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/sparky/pkg/llm"
	"github.com/papercomputeco/sparky/pkg/llm/gemini"
)

// fakeBackend stands in for the Gemini REST API. It records request bodies
// and replies with a fixed status and body.
type fakeBackend struct {
	mu       sync.Mutex
	status   int
	body     string
	block    bool
	requests []map[string]any
	server   *httptest.Server
}

func newFakeBackend() *fakeBackend {
	f := &fakeBackend{status: http.StatusOK}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var decoded map[string]any
		_ = json.Unmarshal(raw, &decoded)

		f.mu.Lock()
		f.requests = append(f.requests, decoded)
		status, body, block := f.status, f.body, f.block
		f.mu.Unlock()

		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		if block {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	return f
}

func (f *fakeBackend) reply(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status, f.body = status, body
}

func (f *fakeBackend) lastRequest() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	Expect(f.requests).NotTo(BeEmpty())
	return f.requests[len(f.requests)-1]
}

const textReply = `{"candidates":[{"content":{"role":"model","parts":[{"text":"Hey there! 👋"}]}}]}`

var _ = Describe("Client", func() {
	var (
		ctx     context.Context
		backend *fakeBackend
		client  *gemini.Client
		timeout time.Duration
	)

	BeforeEach(func() {
		ctx = context.Background()
		backend = newFakeBackend()
		DeferCleanup(backend.server.Close)
		timeout = 30 * time.Second
	})

	JustBeforeEach(func() {
		var err error
		client, err = gemini.New(ctx, gemini.Config{
			APIKey:  "test-key",
			Model:   "gemini-test",
			BaseURL: backend.server.URL,
			Timeout: timeout,
		}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires an api key", func() {
		_, err := gemini.New(ctx, gemini.Config{}, zap.NewNop())
		Expect(err).To(MatchError(ContainSubstring("api key")))
	})

	Describe("response disambiguation", func() {
		It("returns text from the first part", func() {
			backend.reply(http.StatusOK, textReply)

			res, err := client.Generate(ctx, []llm.Turn{llm.UserText("hi")}, "be nice", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(Equal(llm.TextResult{Text: "Hey there! 👋"}))
		})

		It("returns a function call from the first part", func() {
			backend.reply(http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[
				{"functionCall":{"name":"get_users","args":{"status":"online"}}},
				{"text":"ignored"}]}}]}`)

			res, err := client.Generate(ctx, []llm.Turn{llm.UserText("who is online?")}, "", []llm.ToolDeclaration{})
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(Equal(llm.CallResult{Call: llm.FunctionCall{
				Name: "get_users",
				Args: map[string]any{"status": "online"},
			}}))
		})

		It("keeps the thought signature of a function call", func() {
			backend.reply(http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[
				{"functionCall":{"name":"get_users","args":{}},"thoughtSignature":"c2lnLTE="}]}}]}`)

			res, err := client.Generate(ctx, []llm.Turn{llm.UserText("who is online?")}, "", nil)
			Expect(err).NotTo(HaveOccurred())
			call, ok := res.(llm.CallResult)
			Expect(ok).To(BeTrue())
			Expect(call.Call.Signature).To(Equal([]byte("sig-1")))
		})

		It("gives a function call without args an empty map", func() {
			backend.reply(http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[{"functionCall":{"name":"get_files"}}]}}]}`)

			res, err := client.Generate(ctx, []llm.Turn{llm.UserText("files?")}, "", nil)
			Expect(err).NotTo(HaveOccurred())
			call, ok := res.(llm.CallResult)
			Expect(ok).To(BeTrue())
			Expect(call.Call.Args).NotTo(BeNil())
			Expect(call.Call.Args).To(BeEmpty())
		})

		It("reports a response without candidates", func() {
			backend.reply(http.StatusOK, `{"candidates":[]}`)

			res, err := client.Generate(ctx, []llm.Turn{llm.UserText("hi")}, "", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(Equal(llm.TextResult{Text: gemini.ErrTextNoResponse}))
		})

		It("reports a candidate without parts", func() {
			backend.reply(http.StatusOK, `{"candidates":[{"finishReason":"SAFETY"}]}`)

			res, err := client.Generate(ctx, []llm.Turn{llm.UserText("hi")}, "", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(Equal(llm.TextResult{Text: gemini.ErrTextUnexpectedShape}))
		})
	})

	Describe("failure mapping", func() {
		apiError := func(code int, status string) string {
			return `{"error":{"code":` + strconv.Itoa(code) + `,"message":"boom","status":"` + status + `"}}`
		}

		DescribeTable("maps backend status codes",
			func(code int, status, want string) {
				backend.reply(code, apiError(code, status))

				res, err := client.Generate(ctx, []llm.Turn{llm.UserText("hi")}, "", nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(res).To(Equal(llm.TextResult{Text: want}))
				Expect(llm.IsErrorText(want)).To(BeTrue())
			},
			Entry("unknown model", http.StatusNotFound, "NOT_FOUND", gemini.ErrTextModelNotFound),
			Entry("rate limited", http.StatusTooManyRequests, "RESOURCE_EXHAUSTED", gemini.ErrTextRateLimited),
			Entry("bad request", http.StatusBadRequest, "INVALID_ARGUMENT", "Error: 400"),
		)

		Context("when the backend is slower than the timeout", func() {
			BeforeEach(func() {
				timeout = 100 * time.Millisecond
				backend.block = true
			})

			It("returns a timeout message", func() {
				res, err := client.Generate(ctx, []llm.Turn{llm.UserText("hi")}, "", nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(res).To(Equal(llm.TextResult{Text: gemini.ErrTextTimedOut}))
			})
		})

		Context("when the caller cancels", func() {
			BeforeEach(func() {
				backend.block = true
			})

			It("returns the context error", func() {
				callCtx, cancel := context.WithCancel(ctx)
				time.AfterFunc(50*time.Millisecond, cancel)

				res, err := client.Generate(callCtx, []llm.Turn{llm.UserText("hi")}, "", nil)
				Expect(err).To(MatchError(context.Canceled))
				Expect(res).To(BeNil())
			})
		})

		It("maps unknown errors to a generic failure", func() {
			Expect(gemini.MapError(errors.New("connection reset"))).To(Equal(gemini.ErrTextRequestFailed))
			Expect(gemini.MapError(context.DeadlineExceeded)).To(Equal(gemini.ErrTextTimedOut))
		})
	})

	Describe("request serialization", func() {
		BeforeEach(func() {
			backend.reply(http.StatusOK, textReply)
		})

		It("sends the transcript, instruction, tools and generation config", func() {
			transcript := []llm.Turn{
				llm.UserText("who is online?"),
				llm.ModelCall(llm.FunctionCall{Name: "get_users", Args: map[string]any{"status": "online"}}),
				llm.ToolResult("get_users", "Found 1 user(s):\n- alice (ADMIN) [online]\n"),
			}
			tools := []llm.ToolDeclaration{{
				Name:        "get_files",
				Description: "List files",
				Parameters: map[string]llm.ParameterSpec{
					"limit": {Type: llm.ParamInteger, Description: "max"},
					"type":  {Type: llm.ParamString, Description: "kind", Required: true},
				},
			}}

			_, err := client.Generate(ctx, transcript, "You are Sparky.", tools)
			Expect(err).NotTo(HaveOccurred())

			req := backend.lastRequest()

			contents := req["contents"].([]any)
			Expect(contents).To(HaveLen(3))
			Expect(contents[0]).To(HaveKeyWithValue("role", "user"))
			Expect(contents[1]).To(HaveKeyWithValue("role", "model"))
			Expect(contents[2]).To(HaveKeyWithValue("role", "user"))

			callPart := contents[1].(map[string]any)["parts"].([]any)[0].(map[string]any)
			Expect(callPart).To(HaveKeyWithValue("functionCall", HaveKeyWithValue("name", "get_users")))

			respPart := contents[2].(map[string]any)["parts"].([]any)[0].(map[string]any)
			Expect(respPart).To(HaveKeyWithValue("functionResponse", And(
				HaveKeyWithValue("name", "get_users"),
				HaveKeyWithValue("response", HaveKeyWithValue("result", ContainSubstring("alice"))),
			)))

			Expect(req).To(HaveKeyWithValue("systemInstruction",
				HaveKeyWithValue("parts", ContainElement(HaveKeyWithValue("text", "You are Sparky.")))))

			decls := req["tools"].([]any)[0].(map[string]any)["functionDeclarations"].([]any)
			Expect(decls).To(HaveLen(1))
			Expect(decls[0]).To(HaveKeyWithValue("name", "get_files"))
			Expect(decls[0]).To(HaveKeyWithValue("parameters", HaveKeyWithValue("required", ConsistOf("type"))))

			Expect(req).To(HaveKeyWithValue("generationConfig", And(
				HaveKeyWithValue("temperature", BeNumerically("~", 0.7, 0.001)),
				HaveKeyWithValue("topP", BeNumerically("~", 0.95, 0.001)),
				HaveKeyWithValue("maxOutputTokens", BeNumerically("==", 2048)),
			)))
		})

		It("echoes the thought signature with the function call", func() {
			transcript := []llm.Turn{
				llm.UserText("who is online?"),
				llm.ModelCall(llm.FunctionCall{Name: "get_users", Args: map[string]any{}, Signature: []byte("sig-1")}),
				llm.ToolResult("get_users", "No users found matching the criteria."),
			}

			_, err := client.Generate(ctx, transcript, "", nil)
			Expect(err).NotTo(HaveOccurred())

			contents := backend.lastRequest()["contents"].([]any)
			callPart := contents[1].(map[string]any)["parts"].([]any)[0].(map[string]any)
			Expect(callPart).To(HaveKeyWithValue("thoughtSignature", "c2lnLTE="))
		})

		It("omits tools when none are given", func() {
			_, err := client.Generate(ctx, []llm.Turn{llm.UserText("hi")}, "", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(backend.lastRequest()).NotTo(HaveKey("tools"))
		})

		It("rejects a malformed transcript without calling the backend", func() {
			res, err := client.Generate(ctx, []llm.Turn{llm.ToolResult("get_users", "orphan")}, "", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(Equal(llm.TextResult{Text: gemini.ErrTextRequestFailed}))
			Expect(backend.requests).To(BeEmpty())
		})
	})

	Describe("Ping", func() {
		It("returns the model reply", func() {
			backend.reply(http.StatusOK, textReply)

			text, err := client.Ping(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("Hey there! 👋"))
		})

		It("returns the normalized failure", func() {
			backend.reply(http.StatusNotFound, `{"error":{"code":404,"message":"models/gemini-test is not found","status":"NOT_FOUND"}}`)

			text, err := client.Ping(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal(gemini.ErrTextModelNotFound))
		})
	})
})
