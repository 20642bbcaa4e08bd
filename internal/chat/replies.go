package chat

import (
	"fmt"
	"strings"
)

type Kind int

const (
	KindText Kind = iota
	KindAttachment
	KindLink
)

type replyRule struct {
	keywords []string
	reply    string
}

// First matching rule wins, so "custom order" gets the custom reply.
var replyRules = []replyRule{
	{
		keywords: []string{"custom"},
		reply:    "Yes, I take custom orders! Share the colours, size and motifs you have in mind and I will tell you the timeline and price for a custom weave.",
	},
	{
		keywords: []string{"order"},
		reply:    "Thank you for your interest in ordering. You can add the piece to your cart, or tell me which product you like and I will check the loom schedule for you.",
	},
	{
		keywords: []string{"price", "cost", "discount"},
		reply:    "Prices depend on the yarn and the hours on the loom. Let me know which piece you are looking at and I will share the details.",
	},
	{
		keywords: []string{"shipping", "delivery", "deliver"},
		reply:    "I usually dispatch within 3 to 5 days of the order. Orders above ₹5000 ship free.",
	},
}

const (
	fallbackReply = "Thank you for your message! I will get back to you shortly."
	sharedReply   = "Thanks for sharing this with me! I will take a look and get back to you soon."
)

// ReplyFor picks the scripted counterpart answer to content.
func ReplyFor(content string, kind Kind) string {
	if kind == KindAttachment || kind == KindLink {
		return sharedReply
	}
	lower := strings.ToLower(content)
	for _, r := range replyRules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.reply
			}
		}
	}
	return fallbackReply
}

// Greeting is the first message of a brand new conversation.
func Greeting(counterpartName string) string {
	return fmt.Sprintf("Namaste! I'm %s. Thank you for visiting my shop. How can I help you with my handloom collection today?", counterpartName)
}
