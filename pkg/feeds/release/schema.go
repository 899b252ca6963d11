package release

import (
	"github.com/travigo/departures-board/pkg/bounded"
	"github.com/travigo/departures-board/pkg/feed"
)

type schema struct {
	context feed.JSONContext
	working Descriptor

	// holder pairs an asset's url with its name; whichever arrives first waits here
	holder Asset
}

func (s *schema) Reset() {
	s.context.Reset()
	s.working = newDescriptor()
	s.holder = Asset{}
}

func (s *schema) Complete() bool {
	return false
}

func (s *schema) HandleJSON(token feed.JSONToken) {
	// An asset object that closes with only half a pair must not leak into the next
	if token.Kind == feed.ObjectEnd && s.context.Array() == "assets" && s.context.Object() == "" {
		s.holder = Asset{}
	}

	s.context.Track(token)

	if token.Kind != feed.Value {
		return
	}

	inAsset := s.context.Array() == "assets" && s.context.Object() != "uploader"

	switch {
	case s.context.Key == "tag_name" && s.context.Depth() == 1:
		bounded.Set(&s.working.Tag, token.Text, TagCapacity)
	case s.context.Key == "name" && s.context.Array() == "":
		bounded.Set(&s.working.Description, token.Text, DescriptionCapacity)
	case s.context.Key == "url" && inAsset:
		bounded.Set(&s.holder.URL, token.Text, AssetURLCapacity)
	case s.context.Key == "name" && inAsset:
		bounded.Set(&s.holder.Name, token.Text, AssetNameCapacity)
	default:
		return
	}

	if s.holder.URL != "" && s.holder.Name != "" {
		s.working.Assets.Append(s.holder)
		s.holder = Asset{}
	}
}
