package rbac

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleStudent }

const (
	PermQuizTake       = "quiz:take"
	PermQuizManage     = "quiz:manage"
	PermQuizViewKey    = "quiz:view-key"
	PermAttemptCreate  = "attempt:create"
	PermAttemptViewOwn = "attempt:view-own"
	PermAttemptViewAll = "attempt:view-all"
	PermReportView     = "report:view"
	PermUserManage     = "user:manage"
)

// Default policy: administrators hold every capability, students may take
// quizzes and read their own attempts.
var RolePermissions = map[Role][]string{
	RoleStudent: {
		PermQuizTake,
		PermAttemptCreate,
		PermAttemptViewOwn,
	},
	RoleAdmin: {
		"*", // everything
	},
}
