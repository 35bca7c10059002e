// Command blazepose trains and evaluates BlazePose keypoint heatmap models.
//
//	blazepose train -c config.json -e experiments
//	blazepose eval -c config.json -m experiments/mpii/models/model_ep010.h5
//	blazepose devices
//
// Configuration keys can be overridden from the environment, e.g.
// BLAZEPOSE_TRAIN_NB_EPOCHS=3 overrides train.nb_epochs.
package main
