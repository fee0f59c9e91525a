package stores

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// SanitizeHistory keeps only complete user -> assistant exchanges, in order.
// Truncating the history by message count can start it on an assistant answer
// whose question was cut off, and a failed write can leave a question with no
// answer; both are dropped along with any message of an unknown role.
//
// Valid pattern:
// - user -> assistant (repeated)
func SanitizeHistory(msgs []Message) []Message {
	if len(msgs) == 0 {
		return msgs
	}

	result := make([]Message, 0, len(msgs))
	dropped := 0
	for i := 0; i < len(msgs); i++ {
		if msgs[i].Role == RoleUser && i+1 < len(msgs) && msgs[i+1].Role == RoleAssistant {
			result = append(result, msgs[i], msgs[i+1])
			i++
			continue
		}
		dropped++
	}

	if dropped > 0 {
		logrus.WithFields(logrus.Fields{
			"component": "history_sanitizer",
			"dropped":   dropped,
			"kept":      len(result),
			"issues":    DetectCorruptedHistory(msgs),
		}).Debug("Dropped messages outside complete exchanges")
	}
	return result
}

// FormatHistory renders messages one per line as "User: ..." / "Assistant: ...".
func FormatHistory(msgs []Message) string {
	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case RoleUser:
			lines = append(lines, "User: "+msg.Content)
		case RoleAssistant:
			lines = append(lines, "Assistant: "+msg.Content)
		}
	}
	return strings.Join(lines, "\n")
}

// DetectCorruptedHistory reports structural problems in a message list.
// Returns an empty list if the history is clean.
func DetectCorruptedHistory(msgs []Message) []string {
	issues := []string{}
	if len(msgs) == 0 {
		return issues
	}

	if msgs[0].Role == RoleAssistant {
		issues = append(issues, "History starts with an assistant message (question truncated)")
	}
	if msgs[len(msgs)-1].Role == RoleUser {
		issues = append(issues, "History ends with an unanswered user message")
	}
	for i, msg := range msgs {
		if msg.Role != RoleUser && msg.Role != RoleAssistant {
			issues = append(issues, "Unknown role '"+msg.Role+"'")
			continue
		}
		if i > 0 && msgs[i-1].Role == msg.Role {
			issues = append(issues, "Two consecutive "+msg.Role+" messages")
		}
	}
	return issues
}
