package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/spec-kit/helpdesk-service/internal/notify"
	"github.com/spec-kit/helpdesk-service/internal/notify/mocks"
)

func TestMultiSender_AttemptsEveryChannel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	msg := notify.Message{To: []string{"owner@example.com"}, Subject: "Ticket Resolved"}

	failing := mocks.NewMockSender(ctrl)
	failing.EXPECT().Send(gomock.Any(), msg).Return(errors.New("relay down")).Times(1)
	failing.EXPECT().Name().Return("smtp").AnyTimes()

	working := mocks.NewMockSender(ctrl)
	working.EXPECT().Send(gomock.Any(), msg).Return(nil).Times(1)
	working.EXPECT().Name().Return("slack").AnyTimes()

	err := notify.NewMultiSender(failing, working).Send(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp: relay down")
}

func TestMultiSender_Empty(t *testing.T) {
	sender := notify.NewMultiSender()
	assert.NoError(t, sender.Send(context.Background(), notify.Message{}))
	assert.Equal(t, 0, sender.Len())
}
