package model

// Answer is a reply to exactly one Question. Answers are listed oldest first.
//
// Likes holds the IDs of every user who liked the answer. It behaves as a set:
// a user appears at most once (the answer_likes table has a composite primary key).
type Answer struct {
	ID         string   `json:"id"         db:"id"`
	Content    string   `json:"content"    db:"content"`
	QuestionID string   `json:"questionId" db:"question_id"`
	AuthorID   string   `json:"authorId"   db:"author_id"`
	AuthorName string   `json:"authorName" db:"-"`
	Likes      []string `json:"likes"      db:"-"`
	SoftDelete
}

// IsAuthor reports whether userID wrote the answer.
func (a *Answer) IsAuthor(userID string) bool {
	return userID != "" && a.AuthorID == userID
}

// LikeCount returns the number of users who liked the answer.
func (a *Answer) LikeCount() int {
	return len(a.Likes)
}

// LikedBy reports whether userID is in the answer's like set.
func (a *Answer) LikedBy(userID string) bool {
	if userID == "" {
		return false
	}
	for _, id := range a.Likes {
		if id == userID {
			return true
		}
	}
	return false
}
