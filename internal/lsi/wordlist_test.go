package lsi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWordList_AddIsIdempotent(t *testing.T) {
	w := NewWordList()
	i1 := w.Add("dog")
	w.Add("cat")
	i1Again := w.Add("dog")

	assert.Equal(t, i1, i1Again)
	assert.Equal(t, 2, w.Size())
}

func TestWordList_IndexOf_Absent(t *testing.T) {
	w := NewWordList()
	w.Add("dog")

	_, ok := w.IndexOf("cat")
	assert.False(t, ok)
}

func TestWordList_TokenFor(t *testing.T) {
	w := NewWordList()
	w.Add("dog")
	w.Add("cat")

	token, ok := w.TokenFor(1)
	assert.True(t, ok)
	assert.Equal(t, "cat", token)

	_, ok = w.TokenFor(5)
	assert.False(t, ok)
}

func TestWordList_IndexNeverChanges(t *testing.T) {
	w := NewWordList()
	w.Add("dog")
	i1, _ := w.IndexOf("dog")
	w.Add("cat")
	w.Add("dog")
	i1Again, _ := w.IndexOf("dog")

	assert.Equal(t, i1, i1Again)
}
