package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammiranda/category_service/nestedset"
)

func TestCreateCategoryRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateCategoryRequest
		wantErr bool
	}{
		{name: "root", req: CreateCategoryRequest{Name: "Electronics"}},
		{name: "child", req: CreateCategoryRequest{Name: "Phones", ParentID: nestedset.Int64(1)}},
		{name: "before sibling", req: CreateCategoryRequest{Name: "Phones", BeforeID: nestedset.Int64(2)}},
		{name: "explicit slug", req: CreateCategoryRequest{Name: "Phones", Slug: "mobile-phones"}},
		{name: "missing name", req: CreateCategoryRequest{}, wantErr: true},
		{name: "bad slug", req: CreateCategoryRequest{Name: "Phones", Slug: "Mobile Phones"}, wantErr: true},
		{name: "zero parent", req: CreateCategoryRequest{Name: "Phones", ParentID: nestedset.Int64(0)}, wantErr: true},
		{name: "parent and sibling", req: CreateCategoryRequest{Name: "Phones", ParentID: nestedset.Int64(1), AfterID: nestedset.Int64(2)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMoveCategoryRequestValidate(t *testing.T) {
	assert.NoError(t, (&MoveCategoryRequest{}).Validate())
	assert.NoError(t, (&MoveCategoryRequest{AfterID: nestedset.Int64(3)}).Validate())
	assert.Error(t, (&MoveCategoryRequest{BeforeID: nestedset.Int64(3), AfterID: nestedset.Int64(4)}).Validate())
}

func TestUpdateCategoryRequestValidate(t *testing.T) {
	assert.NoError(t, (&UpdateCategoryRequest{Name: "Audio"}).Validate())
	assert.Error(t, (&UpdateCategoryRequest{Name: ""}).Validate())
}

func TestNewForest(t *testing.T) {
	nodes := []*nestedset.Node{
		{ID: 1, Left: 1, Right: 4, Payload: nestedset.Payload{Name: "Root", Slug: "root"}},
		{ID: 2, ParentID: nestedset.Int64(1), Left: 2, Right: 3, Payload: nestedset.Payload{Name: "Child", Slug: "child"}},
	}
	forest := NewForest(nestedset.ToTree(nodes))

	require.Len(t, forest, 1)
	require.Len(t, forest[0].Children, 1)
	assert.Equal(t, "child", forest[0].Children[0].Slug)
	assert.Equal(t, 1, forest[0].Children[0].Depth)

	var ids []int64
	forest[0].Walk(func(c *Category) { ids = append(ids, c.ID) })
	assert.Equal(t, []int64{1, 2}, ids)

	b, err := json.Marshal(forest[0].Children[0])
	require.NoError(t, err)
	assert.Contains(t, string(b), `"children":[]`)
	assert.Contains(t, string(b), `"lft":2`)
	assert.Contains(t, string(b), `"parentId":1`)
}

func TestValidatorRegistersSlugRule(t *testing.T) {
	assert.NotPanics(t, func() { newValidator() })
	v := newValidator()

	type tagged struct {
		Slug string `validate:"slug"`
	}
	assert.NoError(t, v.Struct(tagged{Slug: "home-garden"}))
	assert.Error(t, v.Struct(tagged{Slug: "Home Garden"}))
}
