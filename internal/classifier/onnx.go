package classifier

import (
	"fmt"

	"github.com/andresmejia3/signspell/internal/types"
	ort "github.com/getcharzp/onnxruntime_purego"
)

// ONNXConfig describes an exported letter classifier.
type ONNXConfig struct {
	ModelPath          string
	OnnxRuntimeLibPath string
	InputName          string // default "input"
	OutputName         string // default "output"
}

// ONNX runs the classifier through onnxruntime.
type ONNX struct {
	engine     *ort.Engine
	options    *ort.SessionOptions
	session    *ort.Session
	inputName  string
	outputName string
}

// NewONNX loads the runtime library and the model. Any failure wraps ErrModelLoad.
func NewONNX(cfg ONNXConfig) (*ONNX, error) {
	engine, err := ort.NewEngine(cfg.OnnxRuntimeLibPath)
	if err != nil {
		return nil, fmt.Errorf("%w: onnxruntime %s: %v", ErrModelLoad, cfg.OnnxRuntimeLibPath, err)
	}

	options, err := engine.NewSessionOptions()
	if err != nil {
		engine.Destroy()
		return nil, fmt.Errorf("%w: session options: %v", ErrModelLoad, err)
	}

	session, err := engine.NewSession(cfg.ModelPath, options)
	if err != nil {
		options.Destroy()
		engine.Destroy()
		return nil, fmt.Errorf("%w: %s: %v", ErrModelLoad, cfg.ModelPath, err)
	}

	c := &ONNX{
		engine:     engine,
		options:    options,
		session:    session,
		inputName:  cfg.InputName,
		outputName: cfg.OutputName,
	}
	if c.inputName == "" {
		c.inputName = "input"
	}
	if c.outputName == "" {
		c.outputName = "output"
	}
	return c, nil
}

func (c *ONNX) Forward(tensor *types.InputTensor) (types.ScoreVector, error) {
	inputTensor, err := ort.NewTensor(tensor.Shape(), tensor.Data())
	if err != nil {
		return nil, err
	}
	defer inputTensor.Destroy()

	outputValues, err := c.session.Run(map[string]*ort.Value{
		c.inputName: inputTensor,
	})
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	outputValue, ok := outputValues[c.outputName]
	if !ok {
		for _, v := range outputValues {
			v.Destroy()
		}
		return nil, fmt.Errorf("model has no output named %q", c.outputName)
	}
	defer outputValue.Destroy()

	outputData, err := ort.GetTensorData[float32](outputValue)
	if err != nil {
		return nil, fmt.Errorf("read model output: %w", err)
	}

	// The runtime owns outputData; copy before the value is destroyed
	scores := make(types.ScoreVector, len(outputData))
	copy(scores, outputData)
	return scores, nil
}

func (c *ONNX) Close() {
	if c.session != nil {
		c.session.Destroy()
	}
	if c.options != nil {
		c.options.Destroy()
	}
	if c.engine != nil {
		c.engine.Destroy()
	}
}
