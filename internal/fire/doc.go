// Package fire is a small library of surface fire behavior formulas and an
// embedded demonstration catalog wired to them.
//
// Units follow the fire behavior literature: spread rates in ft/min, wind
// speeds in ft/min, fireline intensity in Btu/ft/s, lengths in ft, and
// fractions as ratios. Formulas are deliberately compact (Rothermel moisture
// damping, Byram flame length, Van Wagner scorch height, Anderson
// length-to-width) and are not a substitute for a full fire model.
package fire
