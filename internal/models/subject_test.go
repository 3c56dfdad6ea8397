package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupSubject(t *testing.T) {
	s, ok := LookupSubject(" english ")
	assert.True(t, ok)
	assert.Equal(t, SubjectEnglish, s)

	_, ok = LookupSubject("History")
	assert.False(t, ok)
}

func TestResolveSubjectFallsBackToDefault(t *testing.T) {
	assert.Equal(t, SubjectMath, ResolveSubject("History"))
	assert.Equal(t, SubjectArt, ResolveSubject("Art"))
}

func TestSetSubjectAssignsNameAndColorTogether(t *testing.T) {
	var h Homework
	h.SetSubject(SubjectGeneral)
	assert.Equal(t, "General", h.Subject)
	assert.Equal(t, "bg-pink-400", h.Color)
	assert.Equal(t, SubjectGeneral, h.SubjectInfo())
}

func TestImageURLsNeverNil(t *testing.T) {
	var h Homework
	assert.NotNil(t, h.ImageURLs())
	h.Images = []string{"a"}
	urls := h.ImageURLs()
	urls[0] = "b"
	assert.Equal(t, "a", h.Images[0])
}
