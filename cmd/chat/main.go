package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"
	"github.com/rivo/tview"

	"github.com/Abraxas-365/parley/pkg/ai/llm"
	"github.com/Abraxas-365/parley/pkg/ai/llm/memoryx"
	"github.com/Abraxas-365/parley/pkg/chat"
)

// Client talks to the conversation server
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 120 * time.Second},
	}
}

// Turn sends one message and returns the assistant reply
func (c *Client) Turn(req chat.TurnRequest) (*chat.TurnResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Post(c.baseURL+"/api/v1/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("server error (%s): %s", apiErr.Code, apiErr.Error)
		}
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var out chat.TurnResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes the server-side conversation
func (c *Client) Delete(conversationID string) error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+"/api/v1/conversations/"+conversationID, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

var serverURL string

func init() {
	flag.StringVar(&serverURL, "server", "", "conversation server base URL")
	flag.Parse()
}

// renderTranscript redraws the conversation view from memory
func renderTranscript(view *tview.TextView, memory memoryx.Memory) {
	view.Clear()
	fmt.Fprintf(view, "Connected to %s\n", serverURL)
	fmt.Fprintf(view, "Type a message and press Enter. /help for commands.\n\n")

	messages, err := memory.Messages()
	if err != nil {
		fmt.Fprintf(view, "[yellow::]Error:[-] %v\n\n", err)
		return
	}
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleUser:
			fmt.Fprintf(view, "[red::]You:[-]\n%s\n\n", msg.Content)
		case llm.RoleAssistant:
			fmt.Fprintf(view, "[green::]Assistant:[-]\n%s\n\n", msg.Content)
		}
	}
}

func main() {
	_ = godotenv.Load()

	if serverURL == "" {
		serverURL = os.Getenv("PARLEY_SERVER_URL")
	}
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}

	client := NewClient(serverURL)
	memory := memoryx.NewBufferMemory("")
	conversationID := ""

	app := tview.NewApplication()
	app.EnablePaste(true)
	app.EnableMouse(true)

	textArea := tview.NewTextArea()
	textArea.SetTitle("Message").SetBorder(true)

	textView := tview.NewTextView().
		SetChangedFunc(func() {
			app.Draw()
		}).
		SetDynamicColors(true).
		SetWordWrap(true)

	textView.SetTitle("Conversation").SetBorder(true)
	textView.ScrollToEnd()
	textView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEnter:
			app.SetFocus(textArea)
		}
		return event
	})

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(textView, 0, 1, false).
		AddItem(textArea, 6, 2, true)

	renderTranscript(textView, memory)

	textArea.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyESC:
			if textView.GetText(false) != "" {
				app.SetFocus(textView)
			}
		case tcell.KeyEnter:
			content := strings.TrimSpace(textArea.GetText())
			if content == "" {
				return nil
			}
			textArea.SetText("", true)
			textArea.SetDisabled(true)

			switch content {
			case "/help":
				fmt.Fprintf(textView, "Commands:\n")
				fmt.Fprintf(textView, "- /help: Display this help message\n")
				fmt.Fprintf(textView, "- /new: Start a fresh conversation\n")
				fmt.Fprintf(textView, "- /bye: Exit the application\n\n")
				textArea.SetDisabled(false)
				return nil
			case "/new":
				if conversationID != "" {
					go client.Delete(conversationID)
				}
				conversationID = ""
				memory.Clear()
				renderTranscript(textView, memory)
				fmt.Fprintf(textView, "Started a new conversation.\n\n")
				textArea.SetDisabled(false)
				return nil
			case "/bye":
				fmt.Fprintf(textView, "Bye bye\n")
				app.Stop()
				return nil
			}

			go func() {
				app.QueueUpdateDraw(func() {
					memory.Add(llm.NewUserMessage(content))
					renderTranscript(textView, memory)
				})

				resp, err := client.Turn(chat.TurnRequest{
					ConversationID: conversationID,
					Message:        content,
				})

				app.QueueUpdateDraw(func() {
					defer textArea.SetDisabled(false)
					if err != nil {
						fmt.Fprintf(textView, "[yellow::]Error:[-] %v\n\n", err)
						return
					}

					conversationID = resp.ConversationID
					memory.Add(llm.NewAssistantMessage(resp.Reply.Content))
					renderTranscript(textView, memory)
					if resp.ContextWarning != "" {
						fmt.Fprintf(textView, "[yellow::](context warning: %s)[-]\n\n", resp.ContextWarning)
					}
				})
			}()
			return nil
		}
		return event
	})

	if err := app.SetRoot(flex, true).SetFocus(textArea).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "application error: %v\n", err)
		os.Exit(1)
	}
}
