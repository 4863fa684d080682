package rpc_test

import (
	"errors"
	"fmt"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"

	"github.com/mcdev12/hackjudge/go/internal/apperr"
	"github.com/mcdev12/hackjudge/go/internal/rpc"
)

func TestFailedSurfacesBusinessMessage(t *testing.T) {
	err := fmt.Errorf("failed to start presentation: %w", apperr.IncompleteScores([]apperr.IncompleteProject{
		{ProjectName: "Rover", MissingJudges: []string{"Ada"}},
	}))

	res := rpc.Failed("/x/Start", err, "Unknown error starting presentation. Please try again.")

	assert.False(t, res.Success)
	assert.Equal(t, apperr.CodeIncompleteScores, res.Code)
	assert.Equal(t, `Cannot start presentation. The following judges have not scored "Rover": Ada.`, res.Message)
	assert.Len(t, res.IncompleteProjects, 1)
}

func TestFailedHidesInternalErrors(t *testing.T) {
	res := rpc.Failed("/x/Start", errors.New("pq: connection refused"), "Unknown error starting presentation. Please try again.")

	assert.False(t, res.Success)
	assert.Empty(t, res.Code)
	assert.Equal(t, "Unknown error starting presentation. Please try again.", res.Message)
}

func TestConnectErrorCodes(t *testing.T) {
	tests := []struct {
		err  error
		want connect.Code
	}{
		{apperr.Unauthenticated(), connect.CodeUnauthenticated},
		{apperr.WrongRole("mentor", "judge"), connect.CodePermissionDenied},
		{apperr.NotFound("gone"), connect.CodeNotFound},
		{apperr.JudgingNotActive(), connect.CodeFailedPrecondition},
		{apperr.InvalidArgument("bad"), connect.CodeInvalidArgument},
		{errors.New("boom"), connect.CodeInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rpc.ConnectError("/x/Get", tt.err).Code(), tt.err.Error())
	}
}

func TestCodecToleratesEmptyBody(t *testing.T) {
	var msg struct{ Name string }
	assert.NoError(t, rpc.Codec{}.Unmarshal(nil, &msg))
	assert.NoError(t, rpc.Codec{}.Unmarshal([]byte(`{"Name":"x"}`), &msg))
	assert.Equal(t, "x", msg.Name)
}
