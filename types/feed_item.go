package types

import (
	"github.com/t2bot/feed-preloader/common"
)

type FeedItem struct {
	Id       string
	Url      string
	Kind     common.MediaKind
	Position int
}

func (i FeedItem) IsStreamed() bool {
	return i.Kind.IsStreamed()
}
