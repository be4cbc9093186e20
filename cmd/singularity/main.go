package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"text/tabwriter"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"singularity/internal/config"
	"singularity/internal/domain"
	"singularity/internal/gdrive"
	"singularity/internal/googleauth"
	"singularity/internal/mirror"
	"singularity/internal/providers"
	"singularity/internal/providers/brightspace"
	"singularity/internal/providers/classroom"
	"singularity/internal/sftpclient"
	"singularity/internal/video"
)

func main() {
	log.SetFlags(0)

	cmd := &cli.Command{
		Name:  "singularity",
		Usage: "Mirror online course content into a local directory tree",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
				Sources: cli.EnvVars("SINGULARITY_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:  "root",
				Usage: "Local directory course mirrors are created under",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Re-download files that already exist",
			},
			&cli.BoolFlag{
				Name:  "no-video",
				Usage: "Skip hosted videos entirely",
			},
			&cli.IntFlag{
				Name:  "parallel",
				Usage: "Concurrent downloads within one container",
			},
			&cli.BoolFlag{
				Name:  "upload",
				Usage: "Upload the finished mirror over SFTP",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "brightspace",
				Usage: "Sync courses from a D2L Brightspace instance",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "base-url",
						Usage:   "Brightspace instance URL",
						Sources: cli.EnvVars("BRIGHTSPACE_BASE_URL"),
					},
					&cli.StringFlag{
						Name:    "cookies",
						Usage:   "JSON cookie export file",
						Sources: cli.EnvVars("BRIGHTSPACE_COOKIES_FILE"),
					},
					&cli.StringFlag{
						Name:    "session-val",
						Usage:   "d2lSessionVal cookie value",
						Sources: cli.EnvVars("BRIGHTSPACE_SESSION_VAL"),
					},
					&cli.StringFlag{
						Name:    "secure-session-val",
						Usage:   "d2lSecureSessionVal cookie value",
						Sources: cli.EnvVars("BRIGHTSPACE_SECURE_SESSION_VAL"),
					},
				},
				Commands: []*cli.Command{
					{
						Name:  "sync",
						Usage: "Mirror one course by id",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "course", Usage: "Course offering id", Required: true},
						},
						Action: brightspaceSync,
					},
					{
						Name:   "list",
						Usage:  "List the user's course enrollments",
						Action: brightspaceList,
					},
					{
						Name:   "all",
						Usage:  "Mirror every active enrollment",
						Action: brightspaceAll,
					},
				},
			},
			{
				Name:  "classroom",
				Usage: "Sync courses from Google Classroom",
				Commands: []*cli.Command{
					{
						Name:  "sync",
						Usage: "Mirror one course by id",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "course", Usage: "Course id", Required: true},
						},
						Action: classroomSync,
					},
					{
						Name:   "list",
						Usage:  "List the user's courses",
						Action: classroomList,
					},
					{
						Name:   "all",
						Usage:  "Mirror every active course",
						Action: classroomAll,
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("error: %v", err)
	}
}

// loadConfig resolves env defaults, then the optional YAML file, then CLI
// flag overrides.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg := config.Load()
	if path := cmd.String("config"); path != "" {
		if err := config.LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	if cmd.IsSet("root") {
		cfg.MirrorRoot = cmd.String("root")
	}
	if cmd.Bool("force") {
		cfg.Force = true
	}
	if cmd.Bool("no-video") {
		cfg.NoVideo = true
	}
	if cmd.IsSet("parallel") {
		cfg.MaxParallel = int(cmd.Int("parallel"))
	}
	if cmd.IsSet("base-url") {
		cfg.Brightspace.BaseURL = cmd.String("base-url")
	}
	if cmd.IsSet("cookies") {
		cfg.Brightspace.CookiesFile = cmd.String("cookies")
	}
	if cmd.IsSet("session-val") {
		cfg.Brightspace.SessionVal = cmd.String("session-val")
	}
	if cmd.IsSet("secure-session-val") {
		cfg.Brightspace.SecureSessionVal = cmd.String("secure-session-val")
	}
	return cfg, nil
}

func brightspaceClient(cfg config.Config) (*brightspace.Client, error) {
	cookies := brightspace.CookiesFromSession(cfg.Brightspace.SessionVal, cfg.Brightspace.SecureSessionVal)
	if cfg.Brightspace.CookiesFile != "" {
		var err error
		cookies, err = brightspace.LoadCookiesFile(cfg.Brightspace.CookiesFile)
		if err != nil {
			return nil, fmt.Errorf("load cookies: %w", err)
		}
	}
	return brightspace.New(cfg.Brightspace.BaseURL, cookies), nil
}

// driveClient builds a drive downloader when Google credentials are
// configured. Courses with no drive-hosted materials work without one, so
// auth problems only warn here.
func driveClient(ctx context.Context, cfg config.Config) mirror.DriveFetcher {
	if _, err := os.Stat(cfg.Google.CredentialsFile); err != nil {
		return nil
	}
	ts, err := googleauth.New(cfg.Google.CredentialsFile, cfg.Google.TokenFile).TokenSource(ctx)
	if err != nil {
		log.Printf("warn: google auth unavailable: %v", err)
		return nil
	}
	dc, err := gdrive.New(ctx, ts)
	if err != nil {
		log.Printf("warn: drive client: %v", err)
		return nil
	}
	return dc
}

func brightspaceSync(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateBrightspace(); err != nil {
		return err
	}
	client, err := brightspaceClient(cfg)
	if err != nil {
		return err
	}
	drive := driveClient(ctx, cfg)
	sources := []domain.CourseSource{{Platform: domain.PlatformBrightspace, CourseID: cmd.String("course")}}
	return syncCourses(ctx, cmd, cfg, sources, func(courseID string) providers.TreeProvider {
		return brightspace.NewProvider(client, courseID)
	}, func(prov providers.TreeProvider) *mirror.Executor {
		return &mirror.Executor{
			Direct: prov.(*brightspace.Provider),
			Drive:  drive,
			Video:  video.New(),
		}
	})
}

func brightspaceList(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateBrightspace(); err != nil {
		return err
	}
	client, err := brightspaceClient(cfg)
	if err != nil {
		return err
	}
	return printCourses(ctx, cfg, brightspace.NewProvider(client, ""))
}

func brightspaceAll(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateBrightspace(); err != nil {
		return err
	}
	client, err := brightspaceClient(cfg)
	if err != nil {
		return err
	}
	sources, err := activeCourses(ctx, domain.PlatformBrightspace, brightspace.NewProvider(client, ""))
	if err != nil {
		return err
	}
	drive := driveClient(ctx, cfg)
	return syncCourses(ctx, cmd, cfg, sources, func(courseID string) providers.TreeProvider {
		return brightspace.NewProvider(client, courseID)
	}, func(prov providers.TreeProvider) *mirror.Executor {
		return &mirror.Executor{
			Direct: prov.(*brightspace.Provider),
			Drive:  drive,
			Video:  video.New(),
		}
	})
}

func classroomClient(ctx context.Context, cfg config.Config) (*classroom.Client, *gdrive.Client, error) {
	ts, err := googleauth.New(cfg.Google.CredentialsFile, cfg.Google.TokenFile).TokenSource(ctx)
	if err != nil {
		return nil, nil, err
	}
	cc, err := classroom.New(ctx, ts)
	if err != nil {
		return nil, nil, err
	}
	dc, err := gdrive.New(ctx, ts)
	if err != nil {
		return nil, nil, err
	}
	return cc, dc, nil
}

func classroomSync(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateClassroom(); err != nil {
		return err
	}
	cc, dc, err := classroomClient(ctx, cfg)
	if err != nil {
		return err
	}
	sources := []domain.CourseSource{{Platform: domain.PlatformClassroom, CourseID: cmd.String("course")}}
	return syncCourses(ctx, cmd, cfg, sources, func(courseID string) providers.TreeProvider {
		return classroom.NewProvider(cc, courseID)
	}, func(providers.TreeProvider) *mirror.Executor {
		return &mirror.Executor{Drive: dc, Video: video.New()}
	})
}

func classroomList(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateClassroom(); err != nil {
		return err
	}
	cc, _, err := classroomClient(ctx, cfg)
	if err != nil {
		return err
	}
	return printCourses(ctx, cfg, classroom.NewProvider(cc, ""))
}

func classroomAll(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateClassroom(); err != nil {
		return err
	}
	cc, dc, err := classroomClient(ctx, cfg)
	if err != nil {
		return err
	}
	sources, err := activeCourses(ctx, domain.PlatformClassroom, classroom.NewProvider(cc, ""))
	if err != nil {
		return err
	}
	return syncCourses(ctx, cmd, cfg, sources, func(courseID string) providers.TreeProvider {
		return classroom.NewProvider(cc, courseID)
	}, func(providers.TreeProvider) *mirror.Executor {
		return &mirror.Executor{Drive: dc, Video: video.New()}
	})
}

// syncCourses mirrors each course in turn. A failed course is reported and
// the rest still run; the command exits non-zero if any failed.
func syncCourses(
	ctx context.Context,
	cmd *cli.Command,
	cfg config.Config,
	sources []domain.CourseSource,
	newProvider func(courseID string) providers.TreeProvider,
	newExecutor func(providers.TreeProvider) *mirror.Executor,
) error {
	var failed int
	for _, src := range sources {
		prov := newProvider(src.CourseID)
		w := mirror.NewWalker(prov, newExecutor(prov), cfg)
		report, err := w.Sync(ctx, src)
		if err != nil {
			log.Printf("course %s failed: %v", src.CourseID, err)
			failed++
			continue
		}
		log.Printf("course %s: %d downloaded, %d skipped, %d unhandled, %d failed",
			src.CourseID, report.Downloaded, report.Skipped, report.Unhandled, report.Failed)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d courses failed", failed, len(sources))
	}

	if cmd.Bool("upload") {
		if err := cfg.ValidateSFTP(); err != nil {
			return err
		}
		log.Printf("uploading %s to sftp://%s", cfg.MirrorRoot, cfg.SFTP.Host)
		return sftpclient.UploadTree(ctx, cfg.SFTP, cfg.MirrorRoot)
	}
	return nil
}

// printCourses writes the raw listing to courses.json under the mirror root
// and prints a table.
func printCourses(ctx context.Context, cfg config.Config, lister providers.CourseLister) error {
	courses, raw, err := lister.ListCourses(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.MirrorRoot, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(cfg.MirrorRoot, "courses.json"), raw, 0o644); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS")
	for _, c := range courses {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Name, c.Status)
	}
	return tw.Flush()
}

func activeCourses(ctx context.Context, platform domain.Platform, lister providers.CourseLister) ([]domain.CourseSource, error) {
	courses, _, err := lister.ListCourses(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.CourseSource
	for _, c := range courses {
		if c.Status == "ACTIVE" {
			out = append(out, domain.CourseSource{Platform: platform, CourseID: c.ID, Title: c.Name})
		}
	}
	return out, nil
}
