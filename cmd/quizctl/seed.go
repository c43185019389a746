package main

import (
	"context"
	"errors"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	"github.com/mind-engage/mindengage-quiz/internal/users"
)

type seedReport struct {
	users   int
	quizzes int
}

var seedUsers = []users.NewUser{
	{Email: "admin@example.com", Name: "Admin", Password: "admin123", Role: rbac.RoleAdmin},
	{Email: "student@example.com", Name: "Student", Password: "student123", Role: rbac.RoleStudent},
}

func sampleQuiz(createdBy int64) quiz.Quiz {
	return quiz.Quiz{
		Title:           "Sample JavaScript Basics",
		Description:     "Quick test on JS fundamentals",
		PassingCriteria: 60,
		CreatedBy:       createdBy,
		Questions: []quiz.Question{
			{
				Type:           quiz.MultipleChoice,
				Text:           "Which keyword declares a constant in JS?",
				Options:        []string{"var", "let", "const", "static"},
				CorrectAnswers: []int{2},
			},
			{
				Type:           quiz.MultipleChoice,
				Text:           "What is the result of typeof null?",
				Options:        []string{"'null'", "'object'", "'undefined'", "'number'"},
				CorrectAnswers: []int{1},
			},
			{
				Type:           quiz.MultipleChoice,
				Text:           "Which method converts JSON string to object?",
				Options:        []string{"JSON.toString()", "JSON.parse()", "parseJSON()", "Object.parse()"},
				CorrectAnswers: []int{1},
			},
			{
				Type:           quiz.TrueFalse,
				Text:           "JavaScript is single-threaded.",
				Options:        []string{"True", "False"},
				CorrectAnswers: []int{0},
			},
		},
	}
}

// seed creates the demo accounts and sample quiz. Running it twice changes
// nothing.
func seed(ctx context.Context, us *users.Store, store quiz.Store) (seedReport, error) {
	var rep seedReport
	var adminID int64
	for _, nu := range seedUsers {
		u, err := us.Create(ctx, nu)
		if errors.Is(err, users.ErrEmailTaken) {
			u, err = us.FindByEmail(ctx, nu.Email)
		} else if err == nil {
			rep.users++
		}
		if err != nil {
			return rep, err
		}
		if u.Role == rbac.RoleAdmin && adminID == 0 {
			adminID = u.ID
		}
	}

	q := sampleQuiz(adminID)
	existing, err := store.ListQuizzes(ctx, quiz.QuizListOpts{Limit: 500})
	if err != nil {
		return rep, err
	}
	for _, s := range existing {
		if s.Title == q.Title {
			return rep, nil
		}
	}
	if err := quiz.ValidateQuiz(q); err != nil {
		return rep, err
	}
	if _, err := store.PutQuiz(ctx, q); err != nil {
		return rep, err
	}
	rep.quizzes++
	return rep, nil
}
