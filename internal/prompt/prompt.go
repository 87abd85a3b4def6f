// Package prompt builds the system and user prompts sent to the model.
package prompt

import (
	"fmt"
	"strings"

	"github.com/ashureev/devgenie/internal/domain"
)

// Prompt is a system instruction paired with the user turn.
type Prompt struct {
	System string
	User   string
}

// Combined joins both parts for providers that accept a single prompt string.
func (p Prompt) Combined() string {
	if p.System == "" {
		return p.User
	}
	return p.System + "\n\n" + p.User
}

// Turn is one earlier question and answer in a follow-up thread.
type Turn struct {
	Question string
	Answer   string
}

// Request carries everything needed to build a prompt.
type Request struct {
	Mode           domain.Mode
	Language       domain.CodeLanguage
	OutputLanguage domain.OutputLanguage
	Code           string

	// Follow-up fields. PriorResult is the root analysis answer and History
	// the earlier follow-up turns, oldest first.
	Question    string
	PriorMode   domain.Mode
	PriorResult string
	History     []Turn
}

var systemTemplates = map[domain.Mode]string{
	domain.ModeExplain:  "You are an expert %s programmer and teacher. Explain code clearly and comprehensively, breaking down complex concepts into understandable parts. Focus on what the code does, how it works, and why it's structured that way. Use markdown formatting for better readability.",
	domain.ModeRefactor: "You are a senior %s developer specializing in code optimization and best practices. Refactor the provided code to improve readability, performance, and maintainability while preserving functionality. Explain your changes using markdown formatting.",
	domain.ModeDebug:    "You are an expert %s debugger. Analyze the code for potential bugs, errors, or issues. Provide specific suggestions for fixes and improvements. Use markdown formatting.",
	domain.ModeOptimize: "You are a %s performance optimization expert. Analyze the code for performance improvements, memory usage optimization, and efficiency gains. Provide optimized code with explanations.",
	domain.ModeSecurity: "You are a %s security expert. Analyze the code for security vulnerabilities, potential exploits, and security best practices. Provide secure alternatives where needed.",
	domain.ModeFollowUp: "You are a knowledgeable %s programming expert. Answer the specific question about the provided code with accuracy and clarity using markdown formatting.",
}

var userTemplates = map[domain.Mode]string{
	domain.ModeExplain:  "Explain this %s code step by step, including what it does, how it works, and any important concepts:",
	domain.ModeRefactor: "Refactor this %s code for better readability, performance, and best practices:",
	domain.ModeDebug:    "Debug this %s code and identify potential issues:",
	domain.ModeOptimize: "Optimize this %s code for better performance:",
	domain.ModeSecurity: "Analyze this %s code for security vulnerabilities:",
}

// System returns the persona prompt for mode. Unknown modes use explain.
func System(lang domain.CodeLanguage, mode domain.Mode) string {
	tmpl, ok := systemTemplates[mode]
	if !ok {
		tmpl = systemTemplates[domain.ModeExplain]
	}
	return fmt.Sprintf(tmpl, lang)
}

// User returns the user turn for req.
func User(req Request) string {
	var b strings.Builder

	if req.Mode == domain.ModeFollowUp && strings.TrimSpace(req.Question) != "" {
		fmt.Fprintf(&b, "Here's the %s code:\n\n", req.Language)
		writeFence(&b, req.Language, req.Code)
		if req.PriorResult != "" {
			fmt.Fprintf(&b, "\n\nYour earlier %s analysis:\n\n%s", priorMode(req.PriorMode), req.PriorResult)
		}
		for _, t := range req.History {
			fmt.Fprintf(&b, "\n\nEarlier question: %s\n\nEarlier answer: %s", t.Question, t.Answer)
		}
		fmt.Fprintf(&b, "\n\nQuestion: %s", strings.TrimSpace(req.Question))
	} else {
		tmpl, ok := userTemplates[req.Mode]
		if !ok {
			tmpl = userTemplates[domain.ModeExplain]
		}
		fmt.Fprintf(&b, tmpl, req.Language)
		b.WriteString("\n\n")
		writeFence(&b, req.Language, req.Code)
	}

	if req.OutputLanguage.IsTranslation() {
		fmt.Fprintf(&b, "\n\nPlease provide your response in %s.", req.OutputLanguage.Name())
	}
	return b.String()
}

// Build assembles the full prompt for req.
func Build(req Request) Prompt {
	return Prompt{
		System: System(req.Language, req.Mode),
		User:   User(req),
	}
}

func writeFence(b *strings.Builder, lang domain.CodeLanguage, code string) {
	fmt.Fprintf(b, "```%s\n%s\n```", lang, code)
}

func priorMode(m domain.Mode) domain.Mode {
	if m == "" || m == domain.ModeFollowUp {
		return domain.ModeExplain
	}
	return m
}
