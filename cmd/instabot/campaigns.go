package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"instabot/pkg/bot"
	"instabot/pkg/instagram"
	"instabot/pkg/ui"
)

var (
	// Campaign flags
	limit       int
	ageDays     int
	maxTotal    int
	skipPrivate bool
	likeImages  bool
	likeOnly    bool
	likeMin     int
	likeMax     int
)

// unfollowNonMutualCmd represents the unfollow-non-mutual command
var unfollowNonMutualCmd = &cobra.Command{
	Use:   "unfollow-non-mutual",
	Short: "Unfollow accounts that do not follow back",
	Long: `Unfollow followed accounts that do not follow this account back.

Excluded users, accounts followed within the grace period and accounts
already unfollowed before are left alone.`,
	Example: `  # Unfollow at most 40 non-mutual accounts
  instabot unfollow-non-mutual --limit 40`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCampaign(cmd, "unfollow_non_mutual", func(ctx context.Context, a *app) (int, error) {
			return a.bot.UnfollowNonMutualFollowers(ctx, limit)
		})
	},
}

// unfollowUnknownCmd represents the unfollow-unknown command
var unfollowUnknownCmd = &cobra.Command{
	Use:   "unfollow-unknown",
	Short: "Unfollow accounts that were followed by hand",
	Long: `Unfollow followed accounts that have no follow record, i.e. accounts
this tool never followed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCampaign(cmd, "unfollow_unknown", func(ctx context.Context, a *app) (int, error) {
			return a.bot.UnfollowAllUnknown(ctx, limit)
		})
	},
}

// unfollowOldCmd represents the unfollow-old command
var unfollowOldCmd = &cobra.Command{
	Use:   "unfollow-old",
	Short: "Unfollow accounts followed more than N days ago",
	Example: `  # Unfollow everything followed over two weeks ago
  instabot unfollow-old --age-days 14`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCampaign(cmd, "unfollow_old", func(ctx context.Context, a *app) (int, error) {
			return a.bot.UnfollowOldFollowed(ctx, ageDays, limit)
		})
	},
}

// followFollowersCmd represents the follow-followers command
var followFollowersCmd = &cobra.Command{
	Use:   "follow-followers <seed>...",
	Short: "Follow the followers of seed accounts",
	Long: `Follow eligible followers of the given seed accounts.

Seeds are processed in random order. Each seed contributes at most its
share of --max-total, and the campaign pauses between seeds. With
--like-images, recent media of every newly followed account is liked too.`,
	Example: `  # Follow up to 30 followers spread over three seeds
  instabot follow-followers natgeo nasa bbcearth --max-total 30

  # Only like photos of the seeds' followers
  instabot follow-followers natgeo --like-only --like-min 1 --like-max 3`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seeds, err := parseSeeds(args)
		if err != nil {
			return err
		}
		return runCampaign(cmd, "follow_followers", func(ctx context.Context, a *app) (int, error) {
			opts := bot.FollowFollowersOptions{
				Seeds:            seeds,
				MaxFollowsTotal:  maxTotal,
				SkipPrivate:      skipPrivate || a.cfg.Follow.SkipPrivate,
				DisableFollow:    likeOnly,
				EnableLikeImages: likeImages || likeOnly || a.cfg.Follow.EnableLikeImages,
				LikeImagesMin:    a.cfg.Follow.LikeImagesMin,
				LikeImagesMax:    a.cfg.Follow.LikeImagesMax,
			}
			if cmd.Flags().Changed("like-min") {
				opts.LikeImagesMin = likeMin
			}
			if cmd.Flags().Changed("like-max") {
				opts.LikeImagesMax = likeMax
			}
			return a.bot.FollowUsersFollowers(ctx, opts)
		})
	},
}

// followLikersCmd represents the follow-likers command
var followLikersCmd = &cobra.Command{
	Use:     "follow-likers <shortcode>",
	Short:   "Follow the accounts that liked a post",
	Example: `  instabot follow-likers CxYz123AbC --limit 20 --skip-private`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCampaign(cmd, "follow_likers", func(ctx context.Context, a *app) (int, error) {
			return a.bot.FollowContentLikers(ctx, args[0], skipPrivate || a.cfg.Follow.SkipPrivate, limit)
		})
	},
}

// listManualCmd represents the list-manual command
var listManualCmd = &cobra.Command{
	Use:   "list-manual",
	Short: "List followed accounts that were not followed by instabot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		manual, err := a.bot.ListManuallyFollowedUsers(ctx)
		if err != nil {
			return fmt.Errorf("failed to list manually followed users: %w", err)
		}
		ui.PrintList("Manually followed", manual)
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{unfollowNonMutualCmd, unfollowUnknownCmd, unfollowOldCmd, followLikersCmd} {
		cmd.Flags().IntVarP(&limit, "limit", "l", 0, "stop after this many actions (0 means no limit)")
	}
	unfollowOldCmd.Flags().IntVar(&ageDays, "age-days", 14, "unfollow accounts followed more than this many days ago")

	for _, cmd := range []*cobra.Command{followFollowersCmd, followLikersCmd} {
		cmd.Flags().BoolVar(&skipPrivate, "skip-private", false, "never follow private accounts")
	}
	followFollowersCmd.Flags().IntVar(&maxTotal, "max-total", 20, "maximum follows across all seeds")
	followFollowersCmd.Flags().BoolVar(&likeImages, "like-images", false, "like recent media of every followed account")
	followFollowersCmd.Flags().BoolVar(&likeOnly, "like-only", false, "like media without following")
	followFollowersCmd.Flags().IntVar(&likeMin, "like-min", 1, "minimum likes per account")
	followFollowersCmd.Flags().IntVar(&likeMax, "like-max", 2, "maximum likes per account")

	rootCmd.AddCommand(unfollowNonMutualCmd, unfollowUnknownCmd, unfollowOldCmd, followFollowersCmd, followLikersCmd, listManualCmd)
}

// runCampaign wires the app, runs fn until it returns or the process is
// interrupted, and reports the outcome.
func runCampaign(cmd *cobra.Command, name string, fn func(ctx context.Context, a *app) (int, error)) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ui.PrintLogo()
	ui.PrintInfo("Account", a.cfg.Instagram.Username)
	ui.PrintInfo("Campaign", name)
	ui.PrintInfo("Run", a.bot.RunID())
	if a.cfg.DryRun {
		ui.PrintWarning("Dry run: no action is performed and no history is written")
	}

	n, err := fn(ctx, a)
	return a.finish(name, n, err)
}

// parseSeeds accepts handles as pasted from a browser ("@name", "name/").
func parseSeeds(args []string) ([]string, error) {
	seeds := make([]string, 0, len(args))
	for _, arg := range args {
		seed := instagram.SanitizeUsername(arg)
		if !instagram.IsValidUsername(seed) {
			return nil, fmt.Errorf("invalid seed account %q", arg)
		}
		seeds = append(seeds, seed)
	}
	return seeds, nil
}
