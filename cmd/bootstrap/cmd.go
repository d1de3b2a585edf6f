// Copyright 2024 StreamNative, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bootstrap

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/streamnative/shardsim/cluster"
	"github.com/streamnative/shardsim/cluster/model"
	"github.com/streamnative/shardsim/common/metrics"
)

var (
	configFile  string
	diskSpace   uint64
	metricsAddr string

	Cmd = &cobra.Command{
		Use:   "bootstrap",
		Short: "Bootstrap an empty modeled cluster and print its status",
		Long: `Initialize the in-memory cluster model from a cluster config file,
validate the shard status contract and print the resulting status as JSON.`,
		RunE: exec,
	}
)

func init() {
	Cmd.Flags().StringVarP(&configFile, "conf", "f", "", "Cluster config file")
	Cmd.Flags().Uint64Var(&diskSpace, "disk-space", cluster.DefaultDiskSpace, "Disk budget for each modeled node, in bytes")
	Cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "If set, keep serving Prometheus metrics at this address until interrupted")
}

func loadClusterConfig(v *viper.Viper) (model.ClusterConfig, error) {
	cc := model.NewClusterConfig()
	if configFile == "" {
		return cc, nil
	}

	v.SetConfigType("yaml")
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return cc, err
	}
	if err := v.Unmarshal(&cc); err != nil {
		return cc, errors.Wrap(err, "failed to load cluster config")
	}
	return cc, nil
}

func exec(*cobra.Command, []string) error {
	return run(os.Stdout)
}

func run(out io.Writer) error {
	conf, err := loadClusterConfig(viper.New())
	if err != nil {
		return err
	}

	cs := cluster.NewClusterState()
	if err = cs.InitializeEmptyCluster(conf, diskSpace); err != nil {
		return err
	}
	if err = cs.CheckConsistency(); err != nil {
		return errors.Wrap(err, "bootstrapped cluster failed consistency check")
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err = enc.Encode(cs.Status()); err != nil {
		return err
	}

	if metricsAddr != "" {
		cm := cs.RegisterMetrics()
		defer cm.Unregister()

		pm, err := metrics.Start(metricsAddr)
		if err != nil {
			return err
		}
		defer pm.Close()

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		sig := <-c
		slog.Info(
			"Shutting down",
			slog.String("signal", sig.String()),
		)
	}
	return nil
}
