// Package main implements sleddbg-lua-host, an example embedding host that
// links the Debugger Core and the Lua language plugin against a real
// golua-backed Lua 5.1 state, runs a script, and pumps Update() on an
// engine-style tick loop until an IDE attaches and drives it over SCMP.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aarzilli/golua/lua"
	"github.com/go-chi/chi/v5"
	"github.com/sled-run/sleddbg/internal/sled/core"
	sledconfig "github.com/sled-run/sleddbg/internal/sled/config"
	"github.com/sled-run/sleddbg/internal/sled/plugin"
	"github.com/sled-run/sleddbg/internal/sled/scmp"
	"github.com/sled-run/sleddbg/internal/luaplugin"
	"github.com/sled-run/sleddbg/pkg/luahost"
)

const Version = "0.1.0"

func init() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	if file, err := os.Open(".env"); err == nil {
		defer file.Close()
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := scanner.Text()
			if len(line) == 0 || line[0] == '#' {
				continue
			}
			if eq := strings.IndexByte(line, '='); eq > 0 {
				k := strings.TrimSpace(line[:eq])
				v := strings.TrimSpace(line[eq+1:])
				if _, exists := os.LookupEnv(k); !exists {
					os.Setenv(k, v)
				}
			}
		}
	}
}

func main() {
	cfgPath := flag.String("config", "sled-debugger.yaml", "path to YAML host config")
	scriptPath := flag.String("script", "", "Lua script to run under the debugger")
	adminAddr := flag.String("admin-addr", "", "if set, serve a /debug/sled/status endpoint on this address")
	flag.Parse()

	cfg, err := sledconfig.Load(*cfgPath)
	if err != nil {
		slog.Error("sled_config_load_failed", "error", err, "path", *cfgPath)
		os.Exit(1)
	}

	coreCfg := cfg.ToCoreConfig()
	size, err := core.RequiredMemory(coreCfg)
	if err != nil {
		slog.Error("sled_core_sizing_failed", "error", err)
		os.Exit(1)
	}
	dbg, err := core.New(coreCfg, make([]byte, size))
	if err != nil {
		slog.Error("sled_core_construction_failed", "error", err)
		os.Exit(1)
	}

	pluginCfg := luaplugin.Config{
		MaxSendBufferSize:          cfg.LuaPlugin.MaxSendBufferSize,
		MaxLuaStates:               cfg.LuaPlugin.MaxLuaStates,
		MaxLuaStateNameLen:         cfg.LuaPlugin.MaxLuaStateNameLen,
		MaxMemTraces:               cfg.LuaPlugin.MaxMemTraces,
		MaxBreakpoints:             cfg.LuaPlugin.MaxBreakpoints,
		MaxEditAndContinues:        cfg.LuaPlugin.MaxEditAndContinues,
		MaxEditAndContinueEntryLen: cfg.LuaPlugin.MaxEditAndContinueEntryLen,
		MaxNumVarFilters:           cfg.LuaPlugin.MaxNumVarFilters,
		MaxVarFilterPatternLen:     cfg.LuaPlugin.MaxVarFilterPatternLen,
		MaxPatternsPerVarFilter:    cfg.LuaPlugin.MaxPatternsPerVarFilter,
		MaxProfileFunctions:        cfg.LuaPlugin.MaxProfileFunctions,
		MaxProfileCallStackDepth:   cfg.LuaPlugin.MaxProfileCallStackDepth,
		NumPathChopChars:           cfg.LuaPlugin.NumPathChopChars,
		MaxWorkBufferSize:          cfg.LuaPlugin.MaxWorkBufferSize,
	}

	pluginSize, err := luaplugin.RequiredMemory(pluginCfg)
	if err != nil {
		slog.Error("sled_lua_plugin_sizing_failed", "error", err)
		os.Exit(1)
	}
	luaPlugin, err := luaplugin.New(scmp.PluginID(1), "lua", pluginCfg, dbg, true, make([]byte, pluginSize))
	if err != nil {
		slog.Error("sled_lua_plugin_construction_failed", "error", err)
		os.Exit(1)
	}
	if err := dbg.AddPlugin(luaPlugin); err != nil {
		slog.Error("sled_plugin_registration_failed", "error", err)
		os.Exit(1)
	}

	L := lua.NewState()
	L.OpenLibs()
	defer L.Close()

	interp := luahost.New(L)
	stateID, err := luaPlugin.RegisterState("main", interp)
	if err != nil {
		slog.Error("sled_lua_state_registration_failed", "error", err)
		os.Exit(1)
	}
	slog.Info("sled_lua_state_registered", "state_id", stateID)

	if err := dbg.StartNetworking(); err != nil {
		slog.Error("sled_networking_start_failed", "error", err)
		os.Exit(1)
	}

	if *adminAddr != "" {
		go serveAdmin(*adminAddr, dbg, stateID)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-quit:
				return
			case <-ticker.C:
				if err := dbg.Update(); err != nil {
					slog.Warn("sled_update_failed", "error", err)
				}
			}
		}
	}()

	if *scriptPath != "" {
		src, err := os.ReadFile(*scriptPath)
		if err != nil {
			slog.Error("lua_script_read_failed", "error", err, "path", *scriptPath)
		} else if err := interp.LoadString(string(src), *scriptPath); err != nil {
			slog.Error("lua_script_load_failed", "error", err, "path", *scriptPath)
		} else if err := interp.Call(0, 0); err != nil {
			slog.Error("lua_script_failed", "error", err, "path", *scriptPath)
		}
	}

	<-stop
	slog.Info("shutdown_initiated")
	close(quit)
	<-done
	luaPlugin.Shutdown()
	dbg.Shutdown()
}

// statusReporter is the slice of *core.Core serveAdmin reads; kept narrow so
// the admin surface can't reach into send/recv paths.
type statusReporter interface {
	ConnState() core.ConnState
	Mode() plugin.DebugMode
}

// serveAdmin exposes a human-facing JSON status endpoint on a loopback admin
// port, the same "small side-channel HTTP mux next to the real protocol"
// shape as the teacher's own /health and /debug/lua-pool routes.
func serveAdmin(addr string, dbg statusReporter, mainStateID int32) {
	r := chi.NewRouter()
	r.Route("/debug/sled", func(r chi.Router) {
		r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"conn_state":    dbg.ConnState().String(),
				"mode":          dbg.Mode().String(),
				"main_state_id": mainStateID,
			})
		})
	})
	slog.Info("sled_admin_http_listening", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("sled_admin_http_failed", "error", err)
	}
}
