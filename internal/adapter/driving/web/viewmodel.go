package web

import (
	"fmt"
	"time"

	vm "github.com/ericfisherdev/heaterpanel/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/heaterpanel/internal/application"
	"github.com/ericfisherdev/heaterpanel/internal/domain/model"
	"github.com/ericfisherdev/heaterpanel/internal/pairingimage"
)

const refreshedLayout = "15:04:05"

// toNoticeViewModels renders notices to sanitized HTML. Blank notices are
// dropped.
func toNoticeViewModels(notices []model.Notice) []vm.NoticeViewModel {
	out := make([]vm.NoticeViewModel, 0, len(notices))
	for _, n := range notices {
		html := RenderNotice(n.Message)
		if html == "" {
			continue
		}
		out = append(out, vm.NoticeViewModel{Level: string(n.Level), HTML: html})
	}
	return out
}

// toInstanceCardViewModel converts a domain Instance to a card. The toggle
// always offers the opposite of the current warming state.
func toInstanceCardViewModel(inst model.Instance) vm.InstanceCardViewModel {
	warmingLabel, toggleLabel, action := "Inactive", "Start Warming", "start"
	if inst.WarmingEnabled {
		warmingLabel, toggleLabel, action = "Active", "Stop Warming", "stop"
	}

	return vm.InstanceCardViewModel{
		ID:             inst.ID,
		Name:           inst.Name,
		Status:         string(inst.Status),
		IsConnected:    inst.IsConnected(),
		WarmingEnabled: inst.WarmingEnabled,
		WarmingLabel:   warmingLabel,
		ToggleLabel:    toggleLabel,
		ToggleURL:      fmt.Sprintf("/instances/%d/warming/%s", inst.ID, action),
		ConnectURL:     fmt.Sprintf("/instances/%d/connect", inst.ID),
		MessagesToday:  inst.MessagesToday,
	}
}

// toPairingViewModel builds the modal for a showing pairing session. The
// instance name is looked up in the cached list and may be empty.
func toPairingViewModel(session model.PairingSession, instances []model.Instance) (*vm.PairingViewModel, error) {
	src, err := pairingimage.DataURI(session.Code)
	if err != nil {
		return nil, err
	}

	p := &vm.PairingViewModel{
		InstanceID: session.InstanceID,
		ImageSrc:   src,
		CloseURL:   "/pairing/close",
	}
	for _, inst := range instances {
		if inst.ID == session.InstanceID {
			p.InstanceName = inst.Name
			break
		}
	}
	return p, nil
}

// toDashboardViewModel converts a dashboard snapshot into the page model.
// A pairing code that cannot be rendered is reported as an error notice
// instead of failing the page.
func toDashboardViewModel(view application.View, csrfToken string) vm.DashboardViewModel {
	cards := make([]vm.InstanceCardViewModel, 0, len(view.Instances))
	for _, inst := range view.Instances {
		cards = append(cards, toInstanceCardViewModel(inst))
	}

	notices := view.Notices
	var pairing *vm.PairingViewModel
	if view.ShowPairing {
		p, err := toPairingViewModel(view.Pairing, view.Instances)
		if err != nil {
			notices = append(notices, model.Notice{
				Level:   model.NoticeError,
				Message: application.UserMessage(&model.OpError{Kind: model.KindPairing, Err: err}),
			})
		} else {
			pairing = p
		}
	}

	var refreshed string
	if !view.LoadedAt.IsZero() {
		refreshed = view.LoadedAt.Local().Format(refreshedLayout)
	}

	return vm.DashboardViewModel{
		CSRFToken:     csrfToken,
		Instances:     cards,
		Pairing:       pairing,
		Notices:       toNoticeViewModels(notices),
		LastRefreshed: refreshed,
	}
}

// loadedWithin reports whether t lies within d of now.
func loadedWithin(t time.Time, d time.Duration, now time.Time) bool {
	return !t.IsZero() && now.Sub(t) < d
}
