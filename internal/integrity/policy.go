package integrity

// Entity names a node of the deletion graph.
type Entity string

// Entities taking part in deletion policies.
const (
	EntityCategory   Entity = "category"
	EntityInstructor Entity = "instructor"
	EntityStudent    Entity = "student"
	EntityCourse     Entity = "course"
	EntityModule     Entity = "module"
	EntityLesson     Entity = "lesson"
	EntityEnrollment Entity = "enrollment"
	EntityProgress   Entity = "lesson_progress"
	EntityRating     Entity = "rating"
)

// DeletePolicy decides what happens to dependents when a parent is deleted.
type DeletePolicy int

const (
	// Restrict refuses the delete while dependents exist.
	Restrict DeletePolicy = iota
	// Cascade deletes dependents together with the parent.
	Cascade
)

func (p DeletePolicy) String() string {
	if p == Cascade {
		return "cascade"
	}
	return "restrict"
}

// Edge is a parent to child relationship with its deletion policy.
type Edge struct {
	Parent Entity
	Child  Entity
	Policy DeletePolicy
}

var edges = []Edge{
	{Parent: EntityCategory, Child: EntityCourse, Policy: Restrict},
	{Parent: EntityInstructor, Child: EntityCourse, Policy: Restrict},
	{Parent: EntityStudent, Child: EntityEnrollment, Policy: Restrict},
	{Parent: EntityCourse, Child: EntityEnrollment, Policy: Restrict},
	{Parent: EntityCourse, Child: EntityModule, Policy: Cascade},
	{Parent: EntityCourse, Child: EntityRating, Policy: Restrict},
	{Parent: EntityModule, Child: EntityLesson, Policy: Cascade},
	{Parent: EntityLesson, Child: EntityProgress, Policy: Restrict},
	{Parent: EntityEnrollment, Child: EntityProgress, Policy: Cascade},
	{Parent: EntityEnrollment, Child: EntityRating, Policy: Cascade},
}

// Edges returns the relationships in which parent is the referenced side,
// restrict edges first.
func Edges(parent Entity) []Edge {
	var restrict, cascade []Edge
	for _, e := range edges {
		if e.Parent != parent {
			continue
		}
		if e.Policy == Restrict {
			restrict = append(restrict, e)
		} else {
			cascade = append(cascade, e)
		}
	}
	return append(restrict, cascade...)
}

// Policy returns the deletion policy between parent and child. The second
// result is false when no such relationship exists.
func Policy(parent, child Entity) (DeletePolicy, bool) {
	for _, e := range edges {
		if e.Parent == parent && e.Child == child {
			return e.Policy, true
		}
	}
	return Restrict, false
}
