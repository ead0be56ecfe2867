package params

import (
	"context"
	"errors"
	"testing"

	"github.com/keepmind9/botparams/pkg/adapters"
	"github.com/keepmind9/botparams/pkg/adapters/discord"
	"github.com/keepmind9/botparams/pkg/adapters/feishu"
	"github.com/keepmind9/botparams/pkg/adapters/onebot"
	"github.com/keepmind9/botparams/pkg/adapters/qqguild"
	"github.com/keepmind9/botparams/pkg/adapters/telegram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermission(t *testing.T) {
	ctx := context.Background()
	s := stateFor(onebot.Adapter{}, onebotPrivate())

	tests := []struct {
		name    string
		perm    Permission
		want    bool
		wantErr bool
	}{
		{"zero permission passes", Permission{}, true, false},
		{"any passes", NewPermission(always(false, nil), always(true, nil)), true, false},
		{"none pass", NewPermission(always(false, nil), always(false, nil)), false, false},
		{"error skipped when another passes", NewPermission(always(false, errors.New("x")), always(true, nil)), true, false},
		{"error reported when none pass", NewPermission(always(false, errors.New("x")), always(false, nil)), false, true},
		{"or combines", NewPermission(always(false, nil)).Or(NewPermission(always(true, nil))), true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.perm.Check(ctx, s)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrivateMessagePermission(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		adapter adapters.Adapter
		event   adapters.Event
		want    bool
	}{
		{"onebot friend", onebot.Adapter{}, onebotPrivate(), true},
		{"onebot group", onebot.Adapter{}, onebotGroup(), false},
		{"telegram private", telegram.Adapter{}, &telegram.PrivateMessageEvent{}, true},
		{"telegram group", telegram.Adapter{}, &telegram.GroupMessageEvent{}, false},
		{"feishu p2p", feishu.Adapter{}, &feishu.PrivateMessageEvent{}, true},
		{"feishu group", feishu.Adapter{}, &feishu.GroupMessageEvent{}, false},
		{"qq guild", qqguild.Adapter{}, &qqguild.MessageEvent{}, false},
		{"discord", discord.Adapter{}, &discord.PrivateMessageEvent{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PrivateMessage().Check(ctx, stateFor(tt.adapter, tt.event))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdapterOnlyPermissions(t *testing.T) {
	ctx := context.Background()
	perms := map[string]Permission{
		"onebot":   OneBotOnly(),
		"feishu":   FeishuOnly(),
		"telegram": TelegramOnly(),
		"qqguild":  QQGuildOnly(),
	}
	states := map[string]*State{
		"onebot":   stateFor(onebot.Adapter{}, onebotPrivate()),
		"feishu":   stateFor(feishu.Adapter{}, &feishu.PrivateMessageEvent{}),
		"telegram": stateFor(telegram.Adapter{}, &telegram.PrivateMessageEvent{}),
		"qqguild":  stateFor(qqguild.Adapter{}, &qqguild.MessageEvent{}),
	}

	for permName, perm := range perms {
		for stateName, s := range states {
			got, err := perm.Check(ctx, s)
			require.NoError(t, err)
			assert.Equal(t, permName == stateName, got, "%s permission on %s", permName, stateName)
		}
	}

	combined := OneBotOnly().Or(FeishuOnly())
	ok, _ := combined.Check(ctx, states["feishu"])
	assert.True(t, ok)
	ok, _ = combined.Check(ctx, states["qqguild"])
	assert.False(t, ok)
}
