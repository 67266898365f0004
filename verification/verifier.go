package verification

import (
	"context"

	"github.com/crytic/solverify/chain/rpc"
	"github.com/crytic/solverify/compilation"
	"github.com/crytic/solverify/compilation/platforms"
	"github.com/crytic/solverify/compilation/types"
	"github.com/crytic/solverify/logging"
	"github.com/crytic/solverify/logging/colors"
	"github.com/crytic/solverify/sources"
	"github.com/crytic/solverify/utils"
	"github.com/crytic/solverify/verification/config"
	"github.com/google/uuid"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

// Verifier proves or disproves that a root source file, compiled under one of a set of compiler configurations,
// produces the runtime bytecode deployed at an address.
type Verifier struct {
	// config describes the project configuration of the run.
	config *config.ProjectConfig

	// platformConfig describes the compilation platform used to compile the flattened unit.
	platformConfig platforms.PlatformConfig

	// Events describes the event system for the Verifier.
	Events VerifierEvents

	// logger describes the Verifier's log object that can be used to log important events
	logger *logging.Logger
}

// NewVerifier creates a Verifier from a validated project configuration.
func NewVerifier(projectConfig *config.ProjectConfig) (*Verifier, error) {
	if err := projectConfig.Validate(); err != nil {
		return nil, err
	}
	platformConfig, err := projectConfig.Compilation.GetPlatformConfig()
	if err != nil {
		return nil, err
	}

	return &Verifier{
		config:         projectConfig,
		platformConfig: platformConfig,
		logger:         logging.GlobalLogger.NewSubLogger("module", logging.VERIFICATION_SERVICE),
	}, nil
}

// sourceResult describes the output of the flattening half of a run.
type sourceResult struct {
	flattened *sources.FlattenedUnit
	extracted *sources.ExtractedUnit
}

// Run fetches the on-chain code and flattens the sources concurrently, then compiles the extracted unit under each
// compiler configuration in order, stopping at the first configuration whose stripped bytecode matches the stripped
// on-chain bytecode. Compiler failures only disqualify their configuration. Resolution, extraction and RPC errors
// abort the run and are returned.
func (v *Verifier) Run(ctx context.Context) (*Outcome, error) {
	runID := uuid.NewString()
	contractName := v.config.ResolvedContractName()
	v.logger.Info("Starting verification run ", colors.Bold, runID, colors.Reset, " for ", colors.Bold,
		v.config.Verification.Address, colors.Reset, " (contract: ", contractName, ")")

	var (
		onchain []byte
		src     sourceResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		code, err := v.fetchCode(gctx)
		onchain = code
		return err
	})
	g.Go(func() error {
		result, err := v.flattenSources(contractName)
		src = result
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(onchain) == 0 {
		v.logger.Warn("No code is deployed at ", v.config.Verification.Address, " at block ", v.config.Verification.BlockTag)
	}

	outcome := &Outcome{
		RunID:         runID,
		Address:       v.config.Verification.Address,
		BlockTag:      v.config.Verification.BlockTag,
		ContractName:  contractName,
		ContractFound: src.extracted.Found,
		Attempts:      make([]Attempt, 0),
		Diagnostics:   make([]string, 0),
	}
	if metadata := types.ExtractContractMetadata(onchain); metadata != nil {
		outcome.EmbeddedCompilerVersion = metadata.CompilerVersion()
		if hash := metadata.ExtractBytecodeHash(); hash != nil {
			outcome.EmbeddedMetadataHash = utils.EncodeHexString(hash)
		}
	}

	configurations, err := compilation.Configurations(ctx, v.platformConfig)
	if err != nil {
		return nil, err
	}
	v.checkConfigurations(configurations, src.flattened, outcome.EmbeddedCompilerVersion)

	err = v.Events.VerificationStarting.Publish(VerificationStartingEvent{
		RunID:          runID,
		Configurations: configurations,
		OnchainLength:  len(onchain),
	})
	if err != nil {
		return nil, err
	}

	for i, configuration := range configurations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		attempt, comparison, err := v.tryConfiguration(ctx, src.extracted.Text, contractName, configuration, onchain, outcome)
		if err != nil {
			return nil, err
		}
		outcome.Attempts = append(outcome.Attempts, attempt)
		err = v.Events.AttemptCompleted.Publish(AttemptCompletedEvent{
			RunID:   runID,
			Index:   i,
			Total:   len(configurations),
			Attempt: attempt,
		})
		if err != nil {
			return nil, err
		}

		// Every reported field describes the same attempt. A failed attempt only reports the on-chain side.
		outcome.CompilerVersion = configuration.Version
		outcome.OptimizerEnabled = configuration.Optimizer
		outcome.SelectedContract = attempt.ContractName
		if comparison == nil {
			outcome.Comparison = CompareBytecode(nil, onchain)
			outcome.Comparison.Matched = false
			continue
		}
		outcome.Comparison = comparison
		if comparison.Matched {
			outcome.Matched = true
			break
		}
	}

	// No configuration was attempted
	if outcome.Comparison == nil {
		outcome.Comparison = CompareBytecode(nil, onchain)
		outcome.Comparison.Matched = false
	}

	if err = v.Events.VerificationFinished.Publish(VerificationFinishedEvent{Outcome: outcome}); err != nil {
		return nil, err
	}
	return outcome, nil
}

// tryConfiguration compiles the unit under a single configuration and compares the result with the on-chain code.
// Candidate errors are recorded on the attempt and in the outcome's diagnostics, and yield a nil comparison. Other
// errors are returned.
func (v *Verifier) tryConfiguration(ctx context.Context, unit string, contractName string, configuration compilation.Configuration, onchain []byte, outcome *Outcome) (Attempt, *Comparison, error) {
	attempt := Attempt{CompilerVersion: configuration.Version, OptimizerEnabled: configuration.Optimizer}

	result, err := v.platformConfig.Compile(ctx, unit, contractName, configuration.Version, configuration.Optimizer)
	if err != nil {
		if !compilation.IsCandidateError(err) {
			return attempt, nil, err
		}
		v.logger.Warn("Compilation with ", colors.Bold, configuration.String(), colors.Reset, " failed", err)
		attempt.Error = err.Error()
		outcome.Diagnostics = append(outcome.Diagnostics, configuration.String()+": "+err.Error())
		return attempt, nil, nil
	}
	for _, diagnostic := range result.Diagnostics {
		v.logger.Debug("Compiler ", diagnostic.Severity, " with ", configuration.String(), ": ", diagnostic.String())
		outcome.Diagnostics = append(outcome.Diagnostics, configuration.String()+": "+diagnostic.String())
	}

	comparison := Compare(result, onchain)
	attempt.ContractName = result.ContractName
	attempt.LocalLength = comparison.LocalLength
	attempt.LocalStrippedLength = comparison.LocalStrippedLength
	attempt.Matched = comparison.Matched
	if comparison.Matched {
		v.logger.Info("Configuration ", colors.Bold, configuration.String(), colors.Reset, " matches")
	} else {
		v.logger.Info("Configuration ", configuration.String(), " does not match (stripped local: ",
			comparison.LocalStrippedLength, " bytes, on-chain: ", comparison.OnchainStrippedLength, " bytes)")
	}
	return attempt, comparison, nil
}

// fetchCode fetches the on-chain code of the configured address.
func (v *Verifier) fetchCode(ctx context.Context) ([]byte, error) {
	fetcher, err := rpc.NewFetcher(ctx, rpc.FetcherConfig{
		Endpoint:       v.config.Verification.RPCEndpoint,
		BlockTag:       v.config.Verification.BlockTag,
		Timeout:        v.config.RPCTimeoutDuration(),
		Attempts:       v.config.Verification.RPCAttempts,
		CacheDirectory: v.config.Verification.CacheDirectory,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			v.logger.Warn("Could not close the code fetcher", err)
		}
	}()
	return fetcher.FetchCode(ctx, v.config.Verification.Address)
}

// flattenSources flattens the root file and extracts the requested contract.
func (v *Verifier) flattenSources(contractName string) (sourceResult, error) {
	flattened, extracted, err := BuildUnit(v.config, contractName)
	if err != nil {
		return sourceResult{}, err
	}
	return sourceResult{flattened: flattened, extracted: extracted}, nil
}

// checkConfigurations logs warnings for candidate versions which do not satisfy the root pragma, and for on-chain
// metadata naming a compiler version that is not a candidate.
func (v *Verifier) checkConfigurations(configurations []compilation.Configuration, flattened *sources.FlattenedUnit, embeddedVersion string) {
	versions := make([]string, 0, len(configurations))
	for _, configuration := range configurations {
		if !slices.Contains(versions, configuration.Version) {
			versions = append(versions, configuration.Version)
		}
	}
	compilation.WarnIncompatibleVersions(sources.PragmaConstraint(flattened.PragmaLine), versions)

	if embeddedVersion != "" && !slices.Contains(versions, embeddedVersion) {
		v.logger.Warn("The on-chain metadata names compiler version ", colors.Bold, embeddedVersion, colors.Reset,
			", which is not among the candidates")
	}
}

// BuildUnit flattens the configured root file and extracts the named contract from it.
func BuildUnit(projectConfig *config.ProjectConfig, contractName string) (*sources.FlattenedUnit, *sources.ExtractedUnit, error) {
	resolver, err := sources.NewResolver(projectConfig.ResolvedDependencyRoot(), projectConfig.Sources.PackagePrefixes)
	if err != nil {
		return nil, nil, err
	}
	flattener := sources.NewFlattener(resolver, projectConfig.Sources.MaxImportDepth)
	return flattener.FlattenAndExtract(projectConfig.Sources.RootFile, contractName,
		projectConfig.Verification.StrictContractMatch)
}
