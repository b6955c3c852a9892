package lms_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/core/lms"
	"github.com/YKZSolutions/MMDC-Student-Portal-sub002/tests"
)

func TestService_CloneMostRecentModules(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)

	teacher := env.CreateTeacher(t, "teacher")
	tv := lms.ViewerOf(teacher)
	admin := lms.ViewerOf(env.CreateAdmin(t, "admin"))
	crs := env.CreateCourse(t, "IT101", 3)

	oldest := env.CreateClass(t, crs.ID, teacher.ID, "2024-2025", 0, time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC))
	recent := env.CreateClass(t, crs.ID, teacher.ID, "2024-2025", 0, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC))
	target := env.CreateClass(t, crs.ID, teacher.ID, "2025-2026", 0, time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC))
	env.CreateClass(t, crs.ID, teacher.ID, "2025-2026", 0, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))

	_, err := env.LMS.CreateModule(ctx, tv, oldest.ID, lms.NewModule{Title: "Old week 1", IsPublished: true})
	require.NoError(t, err)

	mod, err := env.LMS.CreateModule(ctx, tv, recent.ID, lms.NewModule{Title: "Week 1", Description: "Basics", IsPublished: true})
	require.NoError(t, err)
	sec, err := env.LMS.CreateSection(ctx, tv, mod.ID, lms.NewSection{Title: "Readings"})
	require.NoError(t, err)
	_, err = env.LMS.CreateContent(ctx, tv, sec.ID, lms.NewContent{Kind: lms.KindLesson, Title: "Intro", Body: "Welcome", IsPublished: true})
	require.NoError(t, err)
	essay, err := env.LMS.CreateContent(ctx, tv, sec.ID, lms.NewContent{
		Kind:        lms.KindAssignment,
		Title:       "Essay",
		IsPublished: true,
		Assignment:  &lms.NewAssignment{MaxPoints: 50, DueAt: core.TimePtr(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)), AllowLate: true},
	})
	require.NoError(t, err)
	_, err = env.LMS.CreateModule(ctx, tv, recent.ID, lms.NewModule{Title: "Week 2"})
	require.NoError(t, err)

	t.Run("students cannot clone", func(t *testing.T) {
		student := env.CreateStudent(t, "student")
		env.Enroll(t, student.ID, target.ID)
		_, err := env.LMS.CloneMostRecentModules(ctx, lms.ViewerOf(student), target.ID)
		assert.Equal(t, core.ErrPermissionDenied, err)

		outsider := lms.ViewerOf(env.CreateTeacher(t, "outsider"))
		_, err = env.LMS.CloneMostRecentModules(ctx, outsider, target.ID)
		assert.Equal(t, lms.ErrClassNotFound, err)
	})

	tree, err := env.LMS.CloneMostRecentModules(ctx, tv, target.ID)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "Week 1", tree[0].Title)
	assert.Equal(t, "Basics", tree[0].Description)
	assert.Equal(t, target.ID, tree[0].ClassID)
	assert.NotEqual(t, mod.ID, tree[0].ID)
	assert.False(t, tree[0].IsPublished)
	assert.Equal(t, "Week 2", tree[1].Title)
	assert.Empty(t, tree[1].Sections)

	require.Len(t, tree[0].Sections, 1)
	cnts := tree[0].Sections[0].Contents
	require.Len(t, cnts, 2)
	assert.Equal(t, "Intro", cnts[0].Title)
	assert.Equal(t, "Welcome", cnts[0].Body)
	assert.False(t, cnts[0].IsPublished)
	require.NotNil(t, cnts[1].Assignment)
	assert.NotEqual(t, essay.ID, cnts[1].ID)
	assert.Equal(t, 50, cnts[1].Assignment.MaxPoints)
	assert.True(t, cnts[1].Assignment.AllowLate)
	assert.Nil(t, cnts[1].Assignment.DueAt)

	stored, err := env.LMS.ListModules(ctx, admin, target.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	require.Len(t, stored[0].Sections, 1)
	assert.Len(t, stored[0].Sections[0].Contents, 2)

	source, err := env.LMS.ListModules(ctx, admin, recent.ID)
	require.NoError(t, err)
	assert.True(t, source[0].IsPublished, "the source class is left untouched")

	sameShape := cmp.Options{
		cmpopts.EquateEmpty(),
		cmpopts.IgnoreFields(lms.Module{}, "ID", "ClassID", "IsPublished", "PublishAt", "CreatedAt", "UpdatedAt"),
		cmpopts.IgnoreFields(lms.Section{}, "ID", "ModuleID", "CreatedAt", "UpdatedAt"),
		cmpopts.IgnoreFields(lms.Content{}, "ID", "SectionID", "ModuleID", "IsPublished", "CreatedAt", "UpdatedAt", "Submissions"),
		cmpopts.IgnoreFields(lms.Assignment{}, "ContentID", "DueAt"),
	}
	if diff := cmp.Diff(source, stored, sameShape); diff != "" {
		t.Errorf("cloned tree mismatch (-source +clone):\n%s", diff)
	}

	_, err = env.LMS.CloneMostRecentModules(ctx, tv, target.ID)
	assert.Equal(t, lms.ErrClassHasModules, err)

	t.Run("nothing to clone", func(t *testing.T) {
		other := env.CreateCourse(t, "IT102", 3)
		lone := env.CreateClass(t, other.ID, teacher.ID, "2025-2026", 0, time.Now())
		_, err := env.LMS.CloneMostRecentModules(ctx, admin, lone.ID)
		assert.Equal(t, lms.ErrNothingToClone, err)
	})

	t.Run("unknown class", func(t *testing.T) {
		_, err := env.LMS.CloneMostRecentModules(ctx, admin, "d9c0a4f4-4b7e-4d8f-8a3c-1f2e3d4c5b6a")
		assert.Equal(t, lms.ErrClassNotFound, err)
	})
}
