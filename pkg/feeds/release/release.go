package release

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/hashicorp/go-version"
	"github.com/pkg/errors"
	"github.com/travigo/departures-board/pkg/bounded"
	"github.com/travigo/departures-board/pkg/feed"
)

const (
	DefaultEndpoint = "https://api.github.com"

	TagCapacity         = 16
	DescriptionCapacity = 200
	AssetNameCapacity   = 40
	AssetURLCapacity    = 160
	MaxAssets           = 5
)

var repositoryPattern = regexp.MustCompile(`^[\w.-]+/[\w.-]+$`)

type Asset struct {
	Name string `groups:"basic"`
	URL  string `groups:"basic"`
}

// Descriptor is the latest published release of the firmware repository.
type Descriptor struct {
	Tag         string
	Description string
	Assets      bounded.List[Asset]
}

func newDescriptor() Descriptor {
	return Descriptor{Assets: bounded.NewList[Asset](MaxAssets)}
}

// Asset returns the asset with the given file name.
func (d Descriptor) Asset(name string) (Asset, bool) {
	for _, asset := range d.Assets.Items {
		if asset.Name == name {
			return asset, true
		}
	}

	return Asset{}, false
}

// Version parses the tag, accepting a leading "v" or "B" as the firmware tags do.
func (d Descriptor) Version() (*version.Version, error) {
	return ParseVersion(d.Tag)
}

func ParseVersion(tag string) (*version.Version, error) {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimLeft(tag, "vVbB")

	parsed, err := version.NewVersion(tag)
	if err != nil {
		return nil, errors.Wrapf(err, "parse release tag %q", tag)
	}

	return parsed, nil
}

// Newer reports whether the release is a later version than current.
func (d Descriptor) Newer(current string) (bool, error) {
	latest, err := d.Version()
	if err != nil {
		return false, err
	}

	running, err := ParseVersion(current)
	if err != nil {
		return false, err
	}

	return latest.GreaterThan(running), nil
}

type Config struct {
	Endpoint   string
	Repository string
	Token      string
}

type Client struct {
	http   *feed.Client
	config Config

	schema *schema
	parser feed.Parser
	record feed.Record[Descriptor]
}

func NewClient(fetcher *feed.Client, config Config) (*Client, error) {
	if !repositoryPattern.MatchString(config.Repository) {
		return nil, errors.Errorf("invalid repository %q", config.Repository)
	}
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}

	client := &Client{
		http:   fetcher,
		config: config,
		schema: &schema{working: newDescriptor()},
		record: feed.Record[Descriptor]{Name: "release"},
	}
	client.parser = feed.JSON(client.schema)

	return client, nil
}

// Update fetches the latest release descriptor.
func (c *Client) Update(ctx context.Context, progress func(int64)) feed.Outcome {
	header := http.Header{
		"Accept":               []string{"application/vnd.github+json"},
		"X-GitHub-Api-Version": []string{"2022-11-28"},
	}
	if c.config.Token != "" {
		header.Set("Authorization", "Bearer "+c.config.Token)
	}

	outcome := c.http.Fetch(ctx, feed.Request{
		URL:      fmt.Sprintf("%s/repos/%s/releases/latest", strings.TrimSuffix(c.config.Endpoint, "/"), c.config.Repository),
		Header:   header,
		Progress: progress,
	}, c.parser)

	if outcome.Result != feed.Success {
		return outcome
	}

	if c.schema.working.Tag == "" {
		outcome.Result = feed.DataError
		outcome.Message = "release has no tag"
		return outcome
	}

	working := c.schema.working
	working.Assets = working.Assets.Clone()
	outcome.Result = c.record.Promote(working)

	return outcome
}

func (c *Client) Descriptor() Descriptor {
	return c.record.Current()
}

func (c *Client) Loaded() bool {
	return c.record.Loaded()
}

func (c *Client) Token() string {
	return c.config.Token
}
