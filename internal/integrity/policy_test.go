package integrity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyTable(t *testing.T) {
	cases := map[[2]Entity]DeletePolicy{
		{EntityCategory, EntityCourse}:     Restrict,
		{EntityInstructor, EntityCourse}:   Restrict,
		{EntityStudent, EntityEnrollment}:  Restrict,
		{EntityCourse, EntityEnrollment}:   Restrict,
		{EntityCourse, EntityModule}:       Cascade,
		{EntityModule, EntityLesson}:       Cascade,
		{EntityLesson, EntityProgress}:     Restrict,
		{EntityEnrollment, EntityProgress}: Cascade,
		{EntityEnrollment, EntityRating}:   Cascade,
	}
	for pair, want := range cases {
		got, ok := Policy(pair[0], pair[1])
		assert.True(t, ok, "%s -> %s", pair[0], pair[1])
		assert.Equal(t, want, got, "%s -> %s", pair[0], pair[1])
	}

	_, ok := Policy(EntityRating, EntityCourse)
	assert.False(t, ok)
}

func TestEdgesListsRestrictFirst(t *testing.T) {
	got := Edges(EntityCourse)
	assert.Len(t, got, 3)
	assert.Equal(t, Restrict, got[0].Policy)
	assert.Equal(t, Restrict, got[1].Policy)
	assert.Equal(t, Cascade, got[2].Policy)
	assert.Equal(t, EntityModule, got[2].Child)

	assert.Empty(t, Edges(EntityRating))
	assert.Equal(t, "cascade", Cascade.String())
	assert.Equal(t, "restrict", Restrict.String())
}
