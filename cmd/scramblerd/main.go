// Command scramblerd serves the coordinate-only text entry protocol:
// clients render a scrambled keyboard and report pointer coordinates;
// the server alone resolves them to keys.
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nirmal8344/ScramblerKey/internal/auth"
	"github.com/nirmal8344/ScramblerKey/internal/platform"
	"github.com/nirmal8344/ScramblerKey/internal/server"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "scramblerd",
	Short: "Runs the ScramblerKey backend",
	Long: `scramblerd serves randomized keyboard layouts and resolves the
pointer coordinates clients report against them. Typed text only ever
exists server-side, in per-session buffers.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		run()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.Flags().StringVar(&cfgFile, "config", "",
		"config file (default is ./scramblerd.yaml)")
	rootCmd.Flags().String("listen", "", "listen address (overrides config)")
	_ = viper.BindPFlag("listen", rootCmd.Flags().Lookup("listen"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("scramblerd")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.scramblerkey")
	}
	viper.SetEnvPrefix("SCRAMBLERKEY")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.Printf("[scramblerd] using config %s", viper.ConfigFileUsed())
	}
}

func run() {
	if err := platform.DisableCoreDumps(); err != nil {
		log.Printf("[scramblerd] disable core dumps: %v", err)
	}

	cfg, err := configFromViper(viper.GetViper())
	if err != nil {
		log.Fatalf("[scramblerd] config: %v", err)
	}

	srv, err := server.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("[scramblerd] startup: %v", err)
	}

	log.Printf("[scramblerd] listening on %s", cfg.ListenAddr)
	log.Fatal(http.ListenAndServe(cfg.ListenAddr, srv.Handler()))
}

func configFromViper(vip *viper.Viper) (server.Config, error) {
	cfg := server.Config{
		ListenAddr:         vip.GetString("listen"),
		MongoURI:           vip.GetString("mongo.uri"),
		MongoDB:            vip.GetString("mongo.db"),
		UsersCollection:    vip.GetString("mongo.usersCollection"),
		SessionsCollection: vip.GetString("mongo.sessionsCollection"),
		SessionTTL:         vip.GetDuration("sessionTTL"),
		JWTIssuer:          vip.GetString("jwt.issuer"),
		TokenTTL:           vip.GetDuration("jwt.tokenTTL"),
		SealKey:            vip.GetString("sealKey"),
	}

	var seeds []struct {
		Identifier string   `mapstructure:"identifier"`
		Secret     string   `mapstructure:"secret"`
		Roles      []string `mapstructure:"roles"`
	}
	if err := vip.UnmarshalKey("seedUsers", &seeds); err != nil {
		return server.Config{}, err
	}
	for _, s := range seeds {
		seed := server.SeedUser{Identifier: s.Identifier, Secret: s.Secret}
		for _, r := range s.Roles {
			seed.Roles = append(seed.Roles, auth.Role(r))
		}
		cfg.SeedUsers = append(cfg.SeedUsers, seed)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
