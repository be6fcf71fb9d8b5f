package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"kenes-socket-go/internal/config"
	"kenes-socket-go/pkg/types"
)

var callFlags struct {
	callType    string
	domain      string
	topic       string
	scope       string
	serviceCode string
	phone       string
	iin         string
	name        string
	lat         float64
	lon         float64
}

func init() {
	f := callCmd.Flags()
	f.StringVarP(&callFlags.callType, "type", "t", string(types.CallText), "dialog type: text, audio or video")
	f.StringVar(&callFlags.domain, "domain", "", "routing domain (defaults to the configured one)")
	f.StringVar(&callFlags.topic, "topic", "", "routing topic (defaults to the configured one)")
	f.StringVar(&callFlags.scope, "scope", "", "routing scope")
	f.StringVar(&callFlags.serviceCode, "service-code", "", "service code")
	f.StringVar(&callFlags.phone, "phone", "", "caller phone number")
	f.StringVar(&callFlags.iin, "iin", "", "caller individual identification number")
	f.StringVar(&callFlags.name, "name", "", "caller name as \"First Last [Patronymic]\"")
	f.Float64Var(&callFlags.lat, "lat", 0, "caller latitude")
	f.Float64Var(&callFlags.lon, "lon", 0, "caller longitude")

	rootCmd.AddCommand(callCmd)
}

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Start a dialog with an operator",
	Args:  cobra.NoArgs,
	RunE:  runCall,
}

func runCall(cmd *cobra.Command, args []string) error {
	callType, ok := types.ParseCallType(callFlags.callType)
	if !ok {
		return fmt.Errorf("unsupported call type %q", callFlags.callType)
	}

	r, err := newRuntime(cmd)
	if err != nil {
		return err
	}

	return r.run(cmd.Context(), func(ctx context.Context) error {
		ci := buildCallInitialization(r.config, callType)
		ci.Device = r.device.Device(ctx, config.GetVersionString())
		ci.Language = r.client.Language()

		if err := r.client.SendCallInitialization(ci); err != nil {
			return err
		}
		r.printer.printf("Waiting for an operator, type /help for commands")

		return r.interact(ctx, cmd.InOrStdin())
	})
}

func buildCallInitialization(cfg *config.Config, callType types.CallType) types.CallInitialization {
	ci := types.CallInitialization{
		CallType:    callType,
		Domain:      firstNonBlank(callFlags.domain, cfg.Domain),
		Topic:       firstNonBlank(callFlags.topic, cfg.Topic),
		Scope:       callFlags.scope,
		ServiceCode: callFlags.serviceCode,
		Phone:       callFlags.phone,
		IIN:         callFlags.iin,
	}

	names := strings.Fields(callFlags.name)
	if len(names) > 0 {
		ci.FirstName = names[0]
	}
	if len(names) > 1 {
		ci.LastName = names[1]
	}
	if len(names) > 2 {
		ci.Patronymic = strings.Join(names[2:], " ")
	}

	if callFlags.lat != 0 || callFlags.lon != 0 {
		ci.Location = &types.Location{Latitude: callFlags.lat, Longitude: callFlags.lon}
	}

	return ci
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if !types.IsBlank(value) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
