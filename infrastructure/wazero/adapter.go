package wazero

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/reglet-dev/extbridge/hostfuncs"
)

// HostModuleName is the import module guests use for host callbacks.
const HostModuleName = "extbridge_host"

// registerHostModule instantiates extbridge_host in rt.
func registerHostModule(ctx context.Context, rt wazero.Runtime, registry *hostfuncs.HandlerRegistry, logger *slog.Logger, maxRequestSize uint32) error {
	builder := rt.NewHostModuleBuilder(HostModuleName)

	for _, name := range registry.Names() {
		funcName := name
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
				stack[0] = handleRegistryCall(ctx, mod, stack[0], registry, funcName, logger, maxRequestSize)
			}), []api.ValueType{api.ValueTypeI64}, []api.ValueType{api.ValueTypeI64}).
			Export(funcName)
	}

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			logGuestMessage(ctx, mod, stack[0], logger, maxRequestSize)
		}), []api.ValueType{api.ValueTypeI64}, nil).
		Export("log_message")

	_, err := builder.Instantiate(ctx)
	return err
}

// handleRegistryCall serves one callback. Failures are answered with an
// ErrorResponse so the guest is never trapped by the host.
func handleRegistryCall(ctx context.Context, mod api.Module, packed uint64, registry *hostfuncs.HandlerRegistry, name string, logger *slog.Logger, maxRequestSize uint32) uint64 {
	ptr, length := unpackPtrLen(packed)

	if length > maxRequestSize {
		msg := fmt.Sprintf("request size %d exceeds maximum %d bytes", length, maxRequestSize)
		logger.ErrorContext(ctx, "wazero: "+msg, "function", name)
		return writeResponse(ctx, mod, hostfuncs.NewValidationError(msg).ToJSON(), logger)
	}

	request, ok := mod.Memory().Read(ptr, length)
	if !ok {
		logger.ErrorContext(ctx, "wazero: request outside guest memory", "function", name, "ptr", ptr, "len", length)
		return writeResponse(ctx, mod, hostfuncs.NewInternalError("failed to read request from guest memory").ToJSON(), logger)
	}

	response, err := registry.Invoke(ctx, name, request)
	if err != nil {
		logger.ErrorContext(ctx, "wazero: host callback failed", "function", name, "error", err)
		response = hostfuncs.NewInternalError(err.Error()).ToJSON()
	}
	return writeResponse(ctx, mod, response, logger)
}

type guestLogRecord struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func logGuestMessage(ctx context.Context, mod api.Module, packed uint64, logger *slog.Logger, maxRequestSize uint32) {
	ptr, length := unpackPtrLen(packed)
	if length > maxRequestSize {
		return
	}
	payload, ok := mod.Memory().Read(ptr, length)
	if !ok {
		return
	}

	module, _ := hostfuncs.ModuleNameFrom(ctx)
	var rec guestLogRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		logger.InfoContext(ctx, "extension log (raw)", "module", module, "payload", string(payload))
		return
	}
	logger.Log(ctx, guestLevel(rec.Level), rec.Message, "module", module)
}

func guestLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// writeResponse copies data into memory obtained from the guest's allocate
// export. Returns packed ptr+len, or 0 when the guest cannot take it.
func writeResponse(ctx context.Context, mod api.Module, data []byte, logger *slog.Logger) uint64 {
	ptr, err := writeGuest(ctx, mod, data)
	if err != nil {
		logger.ErrorContext(ctx, "wazero: cannot hand response to guest", "error", err)
		return 0
	}
	return packPtrLen(ptr, uint32(len(data))) //nolint:gosec // G115: bounded by guest memory
}

// writeGuest allocates len(data) bytes in the guest and copies data there.
func writeGuest(ctx context.Context, mod api.Module, data []byte) (uint32, error) {
	allocate := mod.ExportedFunction(allocateExport)
	if allocate == nil {
		return 0, fmt.Errorf("guest does not export %q", allocateExport)
	}
	results, err := allocate.Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("guest %s failed: %w", allocateExport, err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("guest %s returned no pointer", allocateExport)
	}
	ptr := api.DecodeU32(results[0])
	if !mod.Memory().Write(ptr, data) {
		return 0, fmt.Errorf("%d bytes at %#x are outside guest memory", len(data), ptr)
	}
	return ptr, nil
}

// packPtrLen packs a pointer into the upper and a length into the lower
// 32 bits.
func packPtrLen(ptr, length uint32) uint64 {
	return (uint64(ptr) << 32) | uint64(length)
}

func unpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> 32)           //nolint:gosec // G115: packed format stores 32-bit values
	length = uint32(packed & 0xFFFFFFFF) //nolint:gosec // G115: packed format stores 32-bit values
	return ptr, length
}
