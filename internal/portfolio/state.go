package portfolio

import "fmt"

// State 是作品集的发布状态。
type State string

const (
	StateDraft     State = "draft"
	StatePublished State = "published"
)

// Event 是驱动状态迁移的动作。
type Event string

const (
	EventSave      Event = "save"
	EventPublish   Event = "publish"
	EventUnpublish Event = "unpublish"
)

// Next 计算状态迁移结果。
// 保存总是回到草稿；发布允许重复执行（重新打时间戳）；取消发布回到草稿。
func Next(from State, ev Event) (State, error) {
	switch from {
	case StateDraft, StatePublished:
	default:
		return "", fmt.Errorf("unknown state %q", from)
	}
	switch ev {
	case EventSave, EventUnpublish:
		return StateDraft, nil
	case EventPublish:
		return StatePublished, nil
	default:
		return "", fmt.Errorf("unknown event %q", ev)
	}
}

func stateOf(published bool) State {
	if published {
		return StatePublished
	}
	return StateDraft
}
