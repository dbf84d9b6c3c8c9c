package model

// Person is an engineer eligible for on-call rotation. Identity is
// implicit: two people with the same email are the same person.
type Person struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone" binding:"omitempty,phone"`
}

// Roster maps a department key to its ordered rotation sequence. The
// order defines who goes on call in which week.
type Roster map[string][]Person

// Department keys form a closed set. Unknown keys are tolerated but
// carry no display label.
const (
	DeptPlatform = "platform"
	DeptNetwork  = "network"
	DeptSecurity = "security"
)

var departmentLabels = map[string]string{
	DeptPlatform: "Platform Engineering",
	DeptNetwork:  "Network Operations",
	DeptSecurity: "Security Operations",
}

// DepartmentLabel returns the display label for a department key,
// falling back to the key itself.
func DepartmentLabel(key string) string {
	if label, ok := departmentLabels[key]; ok {
		return label
	}
	return key
}

// Departments returns the known department keys in display order.
func Departments() []string {
	return []string{DeptPlatform, DeptNetwork, DeptSecurity}
}
