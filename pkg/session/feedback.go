package session

import "fmt"

// Feedback is the user's rating of an answer
type Feedback int

const (
	FeedbackNone     Feedback = 0
	FeedbackUpvote   Feedback = 1
	FeedbackDownvote Feedback = -1
)

// ParseFeedback converts "up"/"down"/"none" into a Feedback value
func ParseFeedback(s string) (Feedback, error) {
	switch s {
	case "up", "upvote", "+1", "1":
		return FeedbackUpvote, nil
	case "down", "downvote", "-1":
		return FeedbackDownvote, nil
	case "none", "clear", "0":
		return FeedbackNone, nil
	default:
		return FeedbackNone, fmt.Errorf("unknown feedback %q", s)
	}
}

// String returns the string representation of the feedback
func (f Feedback) String() string {
	switch f {
	case FeedbackUpvote:
		return "up"
	case FeedbackDownvote:
		return "down"
	default:
		return "none"
	}
}
