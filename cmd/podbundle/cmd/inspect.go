// Copyright © 2018 One Concern

package cmd

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/fatih/color"
	"github.com/oneconcern/podbundle/pkg/dlogger"
	"github.com/oneconcern/podbundle/pkg/errors"
	"github.com/oneconcern/podbundle/pkg/model"
	"github.com/oneconcern/podbundle/pkg/registry"
	"github.com/oneconcern/podbundle/pkg/storage"
	"github.com/oneconcern/podbundle/pkg/wal"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Commands to inspect the content of a storage sink",
	Long: `Commands to inspect the content of a storage sink, without running a build server.

Tags and instructions are only found when the server runs with --persist-state.`,
}

type tagList []model.FeedPointer

func (l tagList) header() []interface{} { return []interface{}{"TAG", "TYPE", "FEED"} }
func (l tagList) rows() [][]interface{} {
	rows := make([][]interface{}, 0, len(l))
	for _, p := range l {
		rows = append(rows, []interface{}{p.Tag, p.Type, p.FeedID})
	}
	return rows
}

type instructionList []model.Instruction

func (l instructionList) header() []interface{} {
	return []interface{}{"LAYOUT", "TYPE", "TAGS", "PUBLISHED"}
}
func (l instructionList) rows() [][]interface{} {
	rows := make([][]interface{}, 0, len(l))
	for _, i := range l {
		rows = append(rows, []interface{}{i.Layout, i.Type, strings.Join(i.Tags, ","), color.HiBlackString(i.CreatedAt.Format(time.RFC3339))})
	}
	return rows
}

type bundleList []model.Bundle

func (l bundleList) header() []interface{} {
	return []interface{}{"FILE", "FEEDS", "SIZE", "BUILT"}
}
func (l bundleList) rows() [][]interface{} {
	rows := make([][]interface{}, 0, len(l))
	for _, b := range l {
		rows = append(rows, []interface{}{b.File(), len(b.Feeds), units.HumanSize(float64(b.Size)), color.HiBlackString(b.BuiltAt.Format(time.RFC3339))})
	}
	return rows
}

type historyList struct {
	Entries []wal.Entry `json:"entries" yaml:"entries"`
	Next    string      `json:"next,omitempty" yaml:"next,omitempty"`
}

func (l historyList) header() []interface{} {
	return []interface{}{"TOKEN", "KIND", "TYPE", "NAME", "VALUE"}
}
func (l historyList) rows() [][]interface{} {
	rows := make([][]interface{}, 0, len(l.Entries))
	for _, e := range l.Entries {
		switch e.Kind {
		case wal.KindFeed:
			rows = append(rows, []interface{}{e.Token, color.GreenString(string(e.Kind)), e.Type, e.Tag, e.Feed})
		default:
			rows = append(rows, []interface{}{e.Token, color.CyanString(string(e.Kind)), e.Type, e.Layout, strings.Join(e.Tags, ",")})
		}
	}
	return rows
}

// openSink opens the sink of the inspect commands
func openSink(cmd *cobra.Command) (storage.Store, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	if settings.Sink == sinkMem {
		cmd.PrintErrln("warning: an in-memory sink is always empty")
	}
	l, err := dlogger.GetLogger(settings.LogLevel)
	if err != nil {
		return nil, err
	}
	return newStore(cmd.Context(), settings, l)
}

var inspectTagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Lists the latest feed of every tag",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openSink(cmd)
		if err != nil {
			return err
		}
		feeds := registry.NewFeeds(registry.Persist(store))
		if err := feeds.Restore(cmd.Context()); err != nil {
			return err
		}
		var list tagList
		feeds.Range(func(p model.FeedPointer) bool {
			list = append(list, p)
			return true
		})
		sort.Slice(list, func(i, j int) bool {
			if list[i].Type != list[j].Type {
				return list[i].Type < list[j].Type
			}
			return list[i].Tag < list[j].Tag
		})
		return render(cmd, list)
	},
}

var inspectInstructionsCmd = &cobra.Command{
	Use:   "instructions",
	Short: "Lists the instruction of every layout",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openSink(cmd)
		if err != nil {
			return err
		}
		instructions := registry.NewInstructions(registry.Persist(store))
		if err := instructions.Restore(cmd.Context()); err != nil {
			return err
		}
		var list instructionList
		instructions.Range(func(i model.Instruction) bool {
			list = append(list, i)
			return true
		})
		sort.Slice(list, func(i, j int) bool {
			if list[i].Type != list[j].Type {
				return list[i].Type < list[j].Type
			}
			return list[i].Layout < list[j].Layout
		})
		return render(cmd, list)
	},
}

var inspectBundlesCmd = &cobra.Command{
	Use:   "bundles",
	Short: "Lists the bundles built in some mode",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openSink(cmd)
		if err != nil {
			return err
		}
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		list, err := listBundles(cmd.Context(), store, model.ParseMode(settings.Mode))
		if err != nil {
			return err
		}
		return render(cmd, list)
	},
}

func listBundles(ctx context.Context, store storage.Store, mode model.Mode) (bundleList, error) {
	keys, err := store.KeysPrefix(ctx, model.GetArchivePathPrefixToBundles(mode))
	if err != nil {
		return nil, err
	}
	list := make(bundleList, 0, len(keys))
	for _, key := range keys {
		data, err := storage.ReadAll(ctx, store, key)
		if err != nil {
			return nil, err
		}
		var b model.Bundle
		if err := model.JSON.Unmarshal(data, &b); err != nil {
			return nil, errors.New("invalid bundle descriptor").WrapMessage("%s: %v", key, err)
		}
		list = append(list, b)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].BuiltAt.Before(list[j].BuiltAt) })
	return list, nil
}

var inspectHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Lists the publishes recorded after some token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openSink(cmd)
		if err != nil {
			return err
		}
		from, _ := cmd.Flags().GetString("from")
		limit, _ := cmd.Flags().GetInt("max")

		entries, next, err := wal.New(store).ListEntries(cmd.Context(), from, limit)
		if err != nil {
			return err
		}
		return render(cmd, historyList{Entries: entries, Next: next})
	},
}

func init() {
	for _, c := range []*cobra.Command{inspectTagsCmd, inspectInstructionsCmd, inspectBundlesCmd, inspectHistoryCmd} {
		c.PreRunE = func(cmd *cobra.Command, _ []string) error {
			return bindFlags(cmd)
		}
		addSinkFlags(c.Flags())
		addLogFlags(c.Flags())
		addFormatFlag(c)
		inspectCmd.AddCommand(c)
	}
	inspectBundlesCmd.Flags().String("mode", "", "build mode of the bundles: development or production. Defaults to NODE_ENV")
	inspectHistoryCmd.Flags().String("from", "", "list the publishes recorded after this token")
	inspectHistoryCmd.Flags().Int("max", 100, "maximum number of publishes to list")
	rootCmd.AddCommand(inspectCmd)
}
