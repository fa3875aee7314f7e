package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
)

func TestGroupServiceCreateAndList(t *testing.T) {
	store := &mockGroupStore{}
	service := NewGroupService(store, nil)

	group, err := service.Create(context.Background(), dto.CreateGroupRequest{Name: " ENG 3-A ", Program: "ENG", Term: "3"})
	require.NoError(t, err)
	assert.Equal(t, "ENG 3-A", group.Name)
	assert.NotEmpty(t, group.ID)

	_, err = service.Create(context.Background(), dto.CreateGroupRequest{Name: "Other", Program: "MED"})
	require.NoError(t, err)

	groups, err := service.List(context.Background(), dto.GroupQuery{Program: "ENG"})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "ENG 3-A", groups[0].Name)
}

func TestGroupServiceCreateRequiresName(t *testing.T) {
	service := NewGroupService(&mockGroupStore{}, nil)

	_, err := service.Create(context.Background(), dto.CreateGroupRequest{})
	require.Error(t, err)
}
