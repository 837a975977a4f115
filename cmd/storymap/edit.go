package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/storymap/internal/pipeline"
	"github.com/alfredjeanlab/storymap/internal/storygraph"
	"github.com/alfredjeanlab/storymap/internal/ui"
)

// editGraph applies fn to the graph named by --graph and reports msg.
func editGraph(cmd *cobra.Command, msg string, fn func(*storygraph.Graph) error) error {
	path, _ := cmd.Flags().GetString("graph")
	svc := pipeline.New(pipeline.Options{Logger: logger})
	if err := svc.EditFile(cmd.Context(), path, fn); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(os.Stdout, map[string]string{"graph": path, "result": msg})
	}
	fmt.Printf("%s %s\n", ui.RenderSuccess("✓"), msg)
	return nil
}

// optionalInt returns the flag value when it was set on the command line.
func optionalInt(cmd *cobra.Command, name string) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetInt(name)
	return &v
}

func optionalString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func usersFlag(cmd *cobra.Command) []string {
	if !cmd.Flags().Changed("users") {
		return nil
	}
	users, _ := cmd.Flags().GetStringSlice("users")
	return storygraph.DedupeUsers(users)
}

func parsePosition(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("position %q: want a 1-based number", s)
	}
	return n, nil
}

func parseStoryType(s string) (storygraph.StoryType, error) {
	t := storygraph.StoryType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown story type %q (want user, system or technical)", s)
	}
	return t, nil
}

// --- Epics ---

var epicCmd = &cobra.Command{
	Use:     "epic",
	Short:   "Create, update, remove and reorder epics",
	GroupID: "graph",
}

var epicCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Append an epic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		estimate := optionalInt(cmd, "estimate")
		return editGraph(cmd, "Created epic "+args[0], func(g *storygraph.Graph) error {
			e, err := g.CreateEpic(args[0], usersFlag(cmd))
			if err != nil {
				return err
			}
			e.EstimatedStories = estimate
			return nil
		})
	},
}

var epicUpdateCmd = &cobra.Command{
	Use:   "update <name>",
	Short: "Rename an epic or change its users or estimate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reset, _ := cmd.Flags().GetBool("clear-estimate")
		p := storygraph.EpicPatch{
			Name:             optionalString(cmd, "name"),
			Users:            usersFlag(cmd),
			EstimatedStories: optionalInt(cmd, "estimate"),
			ClearEstimate:    reset,
		}
		return editGraph(cmd, "Updated epic "+args[0], func(g *storygraph.Graph) error {
			return g.UpdateEpic(args[0], p)
		})
	},
}

var epicRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an epic with everything under it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editGraph(cmd, "Removed epic "+args[0], func(g *storygraph.Graph) error {
			return g.RemoveEpic(args[0])
		})
	},
}

var epicReorderCmd = &cobra.Command{
	Use:   "reorder <name> <position>",
	Short: "Move an epic to a 1-based position",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pos, err := parsePosition(args[1])
		if err != nil {
			return err
		}
		return editGraph(cmd, fmt.Sprintf("Moved epic %s to %d", args[0], pos), func(g *storygraph.Graph) error {
			return g.ReorderEpic(args[0], pos)
		})
	},
}

// --- Features ---

var featureCmd = &cobra.Command{
	Use:     "feature",
	Short:   "Create, update, remove and reorder features",
	GroupID: "graph",
}

var featureCreateCmd = &cobra.Command{
	Use:   "create <epic> <name>",
	Short: "Append a feature to an epic",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		count := optionalInt(cmd, "story-count")
		return editGraph(cmd, "Created feature "+args[0]+" > "+args[1], func(g *storygraph.Graph) error {
			_, err := g.CreateFeature(args[0], args[1], usersFlag(cmd), count)
			return err
		})
	},
}

var featureUpdateCmd = &cobra.Command{
	Use:   "update <epic> <name>",
	Short: "Rename a feature or change its users or story count",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reset, _ := cmd.Flags().GetBool("clear-story-count")
		p := storygraph.FeaturePatch{
			Name:            optionalString(cmd, "name"),
			Users:           usersFlag(cmd),
			StoryCount:      optionalInt(cmd, "story-count"),
			ClearStoryCount: reset,
		}
		return editGraph(cmd, "Updated feature "+args[0]+" > "+args[1], func(g *storygraph.Graph) error {
			return g.UpdateFeature(args[0], args[1], p)
		})
	},
}

var featureRemoveCmd = &cobra.Command{
	Use:   "remove <epic> <name>",
	Short: "Remove a feature and its stories",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editGraph(cmd, "Removed feature "+args[0]+" > "+args[1], func(g *storygraph.Graph) error {
			return g.RemoveFeature(args[0], args[1])
		})
	},
}

var featureReorderCmd = &cobra.Command{
	Use:   "reorder <epic> <name> <position>",
	Short: "Move a feature to a 1-based position within its epic",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		pos, err := parsePosition(args[2])
		if err != nil {
			return err
		}
		msg := fmt.Sprintf("Moved feature %s > %s to %d", args[0], args[1], pos)
		return editGraph(cmd, msg, func(g *storygraph.Graph) error {
			return g.ReorderFeature(args[0], args[1], pos)
		})
	},
}

// --- Stories ---

var storyCmd = &cobra.Command{
	Use:     "story",
	Short:   "Create, update, remove and reorder stories",
	GroupID: "graph",
}

var storyCreateCmd = &cobra.Command{
	Use:   "create <epic> <feature> <name>",
	Short: "Add a story to a feature",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		typeName, _ := cmd.Flags().GetString("type")
		orderText, _ := cmd.Flags().GetString("order")
		typ, err := parseStoryType(typeName)
		if err != nil {
			return err
		}
		var order storygraph.Order
		if orderText != "" {
			if order, err = storygraph.ParseOrder(orderText); err != nil {
				return err
			}
		}
		return editGraph(cmd, "Created story "+args[2], func(g *storygraph.Graph) error {
			_, err := g.CreateStory(args[0], args[1], args[2], usersFlag(cmd), typ, order)
			return err
		})
	},
}

var storyUpdateCmd = &cobra.Command{
	Use:   "update <epic> <feature> <name>",
	Short: "Rename a story or change its users or type",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := storygraph.StoryPatch{
			Name:  optionalString(cmd, "name"),
			Users: usersFlag(cmd),
		}
		if cmd.Flags().Changed("type") {
			typeName, _ := cmd.Flags().GetString("type")
			typ, err := parseStoryType(typeName)
			if err != nil {
				return err
			}
			p.Type = &typ
		}
		return editGraph(cmd, "Updated story "+args[2], func(g *storygraph.Graph) error {
			return g.UpdateStory(args[0], args[1], args[2], p)
		})
	},
}

var storyRemoveCmd = &cobra.Command{
	Use:   "remove <epic> <feature> <name>",
	Short: "Remove a story",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editGraph(cmd, "Removed story "+args[2], func(g *storygraph.Graph) error {
			return g.RemoveStory(args[0], args[1], args[2])
		})
	},
}

var storyReorderCmd = &cobra.Command{
	Use:   "reorder <epic> <feature> <name> <order>",
	Short: "Move a story to a sequential order such as 3 or 2.1",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		order, err := storygraph.ParseOrder(args[3])
		if err != nil {
			return err
		}
		return editGraph(cmd, fmt.Sprintf("Moved story %s to %s", args[2], order), func(g *storygraph.Graph) error {
			return g.ReorderStory(args[0], args[1], args[2], order)
		})
	},
}

// --- Users ---

var userCmd = &cobra.Command{
	Use:     "user",
	Short:   "Add or remove a story's users",
	GroupID: "graph",
}

var userAddCmd = &cobra.Command{
	Use:   "add <epic> <feature> <story> <user>",
	Short: "Add a user to a story",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editGraph(cmd, "Added "+args[3]+" to "+args[2], func(g *storygraph.Graph) error {
			return g.AddUserToStory(args[0], args[1], args[2], args[3])
		})
	},
}

var userRemoveCmd = &cobra.Command{
	Use:   "remove <epic> <feature> <story> <user>",
	Short: "Remove a user from a story",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editGraph(cmd, "Removed "+args[3]+" from "+args[2], func(g *storygraph.Graph) error {
			return g.RemoveUserFromStory(args[0], args[1], args[2], args[3])
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{epicCmd, featureCmd, storyCmd, userCmd} {
		c.PersistentFlags().StringP("graph", "g", "", "story graph file to edit")
		_ = c.MarkPersistentFlagRequired("graph")
	}

	for _, c := range []*cobra.Command{epicCreateCmd, epicUpdateCmd, featureCreateCmd, featureUpdateCmd, storyCreateCmd, storyUpdateCmd} {
		c.Flags().StringSlice("users", nil, "users, comma separated")
	}
	for _, c := range []*cobra.Command{epicUpdateCmd, featureUpdateCmd, storyUpdateCmd} {
		c.Flags().String("name", "", "new name")
	}

	epicCreateCmd.Flags().Int("estimate", 0, "estimated number of stories")
	epicUpdateCmd.Flags().Int("estimate", 0, "estimated number of stories")
	epicUpdateCmd.Flags().Bool("clear-estimate", false, "drop the story estimate")

	featureCreateCmd.Flags().Int("story-count", 0, "estimated number of stories")
	featureUpdateCmd.Flags().Int("story-count", 0, "estimated number of stories")
	featureUpdateCmd.Flags().Bool("clear-story-count", false, "drop the story estimate")

	storyCreateCmd.Flags().String("type", "", "story type: user, system or technical")
	storyCreateCmd.Flags().String("order", "", "sequential order such as 3 or 2.1 (default next step)")
	storyUpdateCmd.Flags().String("type", "", "story type: user, system or technical")

	epicCmd.AddCommand(epicCreateCmd, epicUpdateCmd, epicRemoveCmd, epicReorderCmd)
	featureCmd.AddCommand(featureCreateCmd, featureUpdateCmd, featureRemoveCmd, featureReorderCmd)
	storyCmd.AddCommand(storyCreateCmd, storyUpdateCmd, storyRemoveCmd, storyReorderCmd)
	userCmd.AddCommand(userAddCmd, userRemoveCmd)
}
