// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package module

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Chat is the language-model surface the GPTInfo agent needs: a system
// prompt plus a user prompt in, a completion out.
type Chat interface {
	Ask(ctx context.Context, system, user string) (string, error)
}

// ErrNoChat is returned when GPTInfo fires without a configured client.
var ErrNoChat = errors.New("no chat client configured")

// GPTInfo consults a language model to verify parent/child links and to
// fetch commonsense facts about Things. It is request driven: Fire only
// drains the verification queue.
type GPTInfo struct {
	Base
	chat  Chat
	queue []parentCheck
}

type parentCheck struct {
	child  string
	parent string
}

// NewGPTInfo returns a GPTInfo agent backed by chat; a nil chat leaves
// the agent inert until SetChat is called.
func NewGPTInfo(chat Chat) *GPTInfo {
	return &GPTInfo{Base: NewBase("GPTInfo"), chat: chat}
}

// SetChat assigns the language-model client.
func (g *GPTInfo) SetChat(chat Chat) { g.chat = chat }

// QueueParentCheck schedules a parent/child verification for a later fire.
func (g *GPTInfo) QueueParentCheck(child, parent string) {
	g.queue = append(g.queue, parentCheck{child: child, parent: parent})
}

func (g *GPTInfo) Fire(ctx context.Context) error {
	if len(g.queue) == 0 {
		return nil
	}
	check := g.queue[0]
	g.queue = g.queue[1:]
	answer, err := g.VerifyParentChild(ctx, check.child, check.parent)
	if err != nil {
		return err
	}
	store := g.Store()
	if store == nil {
		return nil
	}
	if strings.HasPrefix(strings.ToLower(answer), "yes") {
		store.AddStatement(check.child, "is-a", check.parent)
		fmt.Fprintf(g.Output(), "GPTInfo: confirmed %s is-a %s\n", check.child, check.parent)
	}
	return nil
}

// VerifyParentChild asks the model whether child is a kind of parent.
// The answer is expected to start with "yes" or "no".
func (g *GPTInfo) VerifyParentChild(ctx context.Context, child, parent string) (string, error) {
	if g.chat == nil {
		return "", ErrNoChat
	}
	system := "Provide commonsense facts about the following:"
	user := fmt.Sprintf("Is the following true: a(n) %s is a(n) %s? (yes or no, no explanation)", child, parent)
	return g.chat.Ask(ctx, system, user)
}

// Parents asks the model for is-a classifications of text, formatted as
// "is-a | VALUE, VALUE".
func (g *GPTInfo) Parents(ctx context.Context, text string) (string, error) {
	if g.chat == nil {
		return "", ErrNoChat
	}
	text = strings.TrimLeft(text, ".")
	system := "This is a classification request. Examples: horse is-a | animal, mammal\n" +
		"chimpanzee is-a | primate, mammal. Answer is formatted: is-a | VALUE, VALUE, VALUE"
	user := fmt.Sprintf("Provide commonsense classification answer the request which is appropriate for a 5 year old: What is-a %s", text)
	return g.chat.Ask(ctx, system, user)
}

// Facts asks the model for commonsense facts about text, one
// "VALUE-NAME | VALUE, VALUE" line per fact.
func (g *GPTInfo) Facts(ctx context.Context, text string) (string, error) {
	if g.chat == nil {
		return "", ErrNoChat
	}
	text = strings.ReplaceAll(text, ".", "")
	system := "Provide answers that are common sense to a 10 year old. Each Answer in the format VALUE-NAME | VALUE, VALUE"
	user := fmt.Sprintf("Provide commonsense facts to answer the request: what is a %s", text)
	return g.chat.Ask(ctx, system, user)
}
