package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apiserver "github.com/avriza/simrunner/internal/api_server"
	"github.com/avriza/simrunner/internal/backend"
	"github.com/avriza/simrunner/internal/config"
	"github.com/avriza/simrunner/internal/runner"
	"github.com/avriza/simrunner/internal/service"
	"github.com/avriza/simrunner/internal/store"
)

type runEnvelope struct {
	Run struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		Error    string `json:"error"`
		ExitCode *int   `json:"exitCode"`
	} `json:"run"`
}

type resultEnvelope struct {
	Result struct {
		Status      string   `json:"status"`
		Artifacts   []string `json:"artifacts"`
		Diagnostics string   `json:"diagnostics"`
		Error       string   `json:"error"`
	} `json:"result"`
}

var _ = Describe("simulation run service", Ordered, func() {
	var (
		baseURL string
		workdir string
		cancel  context.CancelFunc
	)

	// stub simulation binary: writes the log the collector expects, or
	// fails loudly when the input script asks for it
	writeStubBinary := func(dir string) string {
		stub := filepath.Join(dir, "lmp")
		script := `#!/bin/sh
input=$2
if grep -q make_it_fail "$input"; then
    echo "ERROR: Unknown command: make_it_fail" >&2
    exit 1
fi
echo "LAMMPS run" > log.lammps
echo "Total wall time: 0:00:00" >> log.lammps
`
		Expect(os.WriteFile(stub, []byte(script), 0755)).To(Succeed())
		return stub
	}

	writeInput := func(content string) string {
		dir, err := os.MkdirTemp(workdir, "input-*")
		Expect(err).To(BeNil())
		path := filepath.Join(dir, "input.lammps")
		Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
		return path
	}

	BeforeAll(func() {
		workdir = GinkgoT().TempDir()

		cfg := config.NewDefault()
		cfg.Database.Name = filepath.Join(workdir, "e2e.db")
		cfg.Runner.LammpsBinary = writeStubBinary(workdir)
		cfg.Runner.WorkdirRoot = filepath.Join(workdir, "runs")
		cfg.Runner.PollInterval = 10 * time.Millisecond
		cfg.Runner.PollJitter = time.Millisecond

		db, err := store.InitDB(cfg)
		Expect(err).To(BeNil())
		st := store.NewStore(db)
		Expect(st.InitialMigration()).To(BeNil())

		b, err := backend.New(cfg)
		Expect(err).To(BeNil())
		svc := service.NewRunService(st, runner.New(b, runner.OptionsFromConfig(cfg)), time.Minute)

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).To(BeNil())
		baseURL = fmt.Sprintf("http://%s", listener.Addr())

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		go func() {
			defer GinkgoRecover()
			Expect(apiserver.New(cfg, svc, listener).Run(ctx)).To(Succeed())
		}()

		Eventually(func() error {
			resp, err := http.Get(baseURL + "/health")
			if err != nil {
				return err
			}
			resp.Body.Close()
			return nil
		}, 5*time.Second, 50*time.Millisecond).Should(Succeed())
	})

	AfterAll(func() {
		cancel()
	})

	submitRun := func(scriptPath string) runEnvelope {
		body, err := json.Marshal(map[string]any{"scriptPath": scriptPath})
		Expect(err).To(BeNil())

		resp, err := http.Post(baseURL+"/api/v1/runs/", "application/json", bytes.NewReader(body))
		Expect(err).To(BeNil())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var env runEnvelope
		Expect(json.NewDecoder(resp.Body).Decode(&env)).To(Succeed())
		return env
	}

	getRun := func(id string) runEnvelope {
		resp, err := http.Get(fmt.Sprintf("%s/api/v1/runs/%s/", baseURL, id))
		Expect(err).To(BeNil())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var env runEnvelope
		Expect(json.NewDecoder(resp.Body).Decode(&env)).To(Succeed())
		return env
	}

	It("runs a simulation to completion and serves its result", func() {
		env := submitRun(writeInput("units metal\nrun 0\n"))
		Expect(env.Run.Status).To(Equal("pending"))

		Eventually(func() string {
			return getRun(env.Run.ID).Run.Status
		}, 5*time.Second, 50*time.Millisecond).Should(Equal("completed"))

		resp, err := http.Get(fmt.Sprintf("%s/api/v1/runs/%s/result", baseURL, env.Run.ID))
		Expect(err).To(BeNil())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var result resultEnvelope
		Expect(json.NewDecoder(resp.Body).Decode(&result)).To(Succeed())
		Expect(result.Result.Status).To(Equal("completed"))
		Expect(result.Result.Artifacts).ToNot(BeEmpty())
		Expect(result.Result.Artifacts[0]).To(HaveSuffix("log.lammps"))
	})

	It("reports a failed simulation with diagnostics", func() {
		env := submitRun(writeInput("units metal\nmake_it_fail\n"))

		Eventually(func() string {
			return getRun(env.Run.ID).Run.Status
		}, 5*time.Second, 50*time.Millisecond).Should(Equal("failed"))

		resp, err := http.Get(fmt.Sprintf("%s/api/v1/runs/%s/result", baseURL, env.Run.ID))
		Expect(err).To(BeNil())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var result resultEnvelope
		Expect(json.NewDecoder(resp.Body).Decode(&result)).To(Succeed())
		Expect(result.Result.Status).To(Equal("failed"))
		Expect(result.Result.Error).To(ContainSubstring("exit code 1"))
		Expect(result.Result.Diagnostics).To(ContainSubstring("Unknown command"))
	})

	It("rejects a submission whose input script does not exist", func() {
		body, err := json.Marshal(map[string]any{"scriptPath": filepath.Join(workdir, "missing.lammps")})
		Expect(err).To(BeNil())

		resp, err := http.Post(baseURL+"/api/v1/runs/", "application/json", bytes.NewReader(body))
		Expect(err).To(BeNil())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
	})

	It("lists archived runs", func() {
		resp, err := http.Get(baseURL + "/api/v1/runs/")
		Expect(err).To(BeNil())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var list struct {
			Runs []json.RawMessage `json:"runs"`
		}
		Expect(json.NewDecoder(resp.Body).Decode(&list)).To(Succeed())
		Expect(len(list.Runs)).To(BeNumerically(">=", 3))
	})
})
