package model

// MaxQuestionTitleLength is the column limit for Question.Title.
const MaxQuestionTitleLength = 200

// Question is a post asking something. Questions are listed newest first.
//
// AuthorID is fixed at creation: updates only ever touch Title and Content.
// AuthorName is filled by reads that join the users table; it is not stored.
type Question struct {
	ID         string `json:"id"         db:"id"`
	Title      string `json:"title"      db:"title"`
	Content    string `json:"content"    db:"content"`
	AuthorID   string `json:"authorId"   db:"author_id"`
	AuthorName string `json:"authorName" db:"-"`
	SoftDelete
}

// IsAuthor reports whether userID wrote the question.
func (q *Question) IsAuthor(userID string) bool {
	return userID != "" && q.AuthorID == userID
}
